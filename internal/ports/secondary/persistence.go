// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the engine drives
// persistence and append-only logs.
package secondary

import (
	"context"
	"time"

	"github.com/example/sprintq/internal/core/story"
)

// QueueRepository is the sole source of truth for story records. Every
// mutating call is all-or-nothing: implementations persist the whole sprint
// document via temp-file plus atomic rename, so a mid-write crash never
// leaves partial state.
type QueueRepository interface {
	// Get retrieves a story by id. Returns story.ErrStoryNotFound if absent.
	Get(ctx context.Context, id string) (*story.Record, error)

	// List retrieves every story in declared sprint order.
	List(ctx context.Context) ([]*story.Record, error)

	// ListReady retrieves all unassigned stories whose dependencies are
	// resolved, in deterministic order.
	ListReady(ctx context.Context) ([]*story.Record, error)

	// UpdateStatus applies a guarded status transition, persists, and
	// cascades the status propagator up the ancestor chain.
	UpdateStatus(ctx context.Context, id string, newStatus story.Status) error

	// SetMetadata merges a mutation into the story's metadata and persists.
	// Shape validation is the caller's responsibility.
	SetMetadata(ctx context.Context, id string, mutate func(*story.Metadata)) error

	// Apply runs an arbitrary multi-record mutation against the in-memory
	// graph and persists the result atomically. If mutate returns an error
	// nothing is written.
	Apply(ctx context.Context, mutate func(g *story.Graph) error) error

	// Sprint returns the sprint-level fields of the document.
	Sprint(ctx context.Context) (story.Sprint, error)
}

// AuditEntry is one append-only record of a skip or reconciliation decision.
type AuditEntry struct {
	Timestamp          time.Time `json:"timestamp"`
	StoryID            string    `json:"story_id"`
	Check              string    `json:"check,omitempty"`
	Action             string    `json:"action"` // skip | run
	Reason             string    `json:"reason"`
	ReconciliationMode string    `json:"reconciliation_mode,omitempty"`
}

// AuditSink appends decision records. Implementations never rewrite
// existing entries. Callers treat append failure as a warning, never as a
// failure of the decision being logged.
type AuditSink interface {
	Append(entry AuditEntry) error
}

// JournalEntry is one immutable record of a story mutation.
type JournalEntry struct {
	ID        int64
	SprintID  string
	ActorID   string // empty means unattributed
	StoryID   string
	Action    string // create | update | reconcile
	FieldName string // for updates only
	OldValue  string
	NewValue  string
	CreatedAt time.Time
}

// JournalFilters contains filter options for querying the journal.
type JournalFilters struct {
	StoryID string
	Action  string
	Limit   int
}

// JournalRepository persists the queryable sprint mutation history.
// Entries are immutable; old entries can be pruned.
type JournalRepository interface {
	// Record persists a new journal entry.
	Record(ctx context.Context, entry *JournalEntry) error

	// List retrieves entries matching the filters, newest first.
	List(ctx context.Context, filters JournalFilters) ([]*JournalEntry, error)

	// PruneOlderThan deletes entries older than the given number of days.
	// Returns the number of deleted entries.
	PruneOlderThan(ctx context.Context, days int) (int, error)
}
