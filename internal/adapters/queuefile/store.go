// Package queuefile implements the queue repository over a single JSON
// sprint document. Writes are all-or-nothing: the document is written to a
// temp file in the same directory and atomically renamed into place, so a
// mid-write crash never leaves partial state. This gives crash consistency
// for a single active worker, not concurrent-writer consistency.
package queuefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/sprintq/internal/core/propagate"
	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/ctxutil"
	"github.com/example/sprintq/internal/ports/secondary"
)

// Store implements secondary.QueueRepository over one sprint JSON document.
type Store struct {
	path    string
	journal secondary.JournalRepository // optional, nil disables journaling
	now     func() time.Time

	// failed latches after a serialization error. The store then refuses
	// further mutation until recreated, per the fail-closed policy.
	failed bool
}

// New creates a store for the sprint document at path. The journal may be
// nil; journal write failures are reported to stderr and never fail the
// mutation they describe.
func New(path string, journal secondary.JournalRepository) *Store {
	return &Store{path: path, journal: journal, now: time.Now}
}

// Path returns the location of the sprint document.
func (s *Store) Path() string {
	return s.path
}

// Init writes a fresh sprint document. Fails if one already exists.
func (s *Store) Init(sprint story.Sprint, stories []*story.Record) error {
	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("sprint document already exists at %s", s.path)
	}
	doc := &story.Document{Sprint: sprint, Stories: stories}
	g, err := story.NewGraph(doc)
	if err != nil {
		return fmt.Errorf("invalid sprint plan: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create sprint dir: %w", err)
	}
	return s.save(g)
}

// load reads and validates the sprint document. Structural invariant
// violations (cycles, orphaned references) abort the whole load.
func (s *Store) load() (*story.Graph, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sprint document: %w", err)
	}
	var doc story.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", story.ErrSerialization, err)
	}
	g, err := story.NewGraph(&doc)
	if err != nil {
		return nil, fmt.Errorf("queue load aborted: %w", err)
	}
	return g, nil
}

// save persists the graph atomically and regenerates the derived index.
func (s *Store) save(g *story.Graph) error {
	data, err := json.MarshalIndent(g.Document(), "", "  ")
	if err != nil {
		s.failed = true
		return fmt.Errorf("%w: %v", story.ErrSerialization, err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".sprint-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write sprint document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace sprint document: %w", err)
	}
	writeIndex(s.path, g)
	return nil
}

// guardMutable refuses mutation after a serialization failure.
func (s *Store) guardMutable() error {
	if s.failed {
		return fmt.Errorf("%w: store is read-only after serialization failure", story.ErrSerialization)
	}
	return nil
}

// Get retrieves a story by id.
func (s *Store) Get(ctx context.Context, id string) (*story.Record, error) {
	g, err := s.load()
	if err != nil {
		return nil, err
	}
	rec := g.Get(id)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", story.ErrStoryNotFound, id)
	}
	return rec, nil
}

// List retrieves every story in declared sprint order.
func (s *Store) List(ctx context.Context) ([]*story.Record, error) {
	g, err := s.load()
	if err != nil {
		return nil, err
	}
	return g.All(), nil
}

// ListReady retrieves eligible stories in deterministic order.
func (s *Store) ListReady(ctx context.Context) ([]*story.Record, error) {
	g, err := s.load()
	if err != nil {
		return nil, err
	}
	return g.Ready(), nil
}

// Sprint returns the sprint-level fields.
func (s *Store) Sprint(ctx context.Context) (story.Sprint, error) {
	g, err := s.load()
	if err != nil {
		return story.Sprint{}, err
	}
	return g.Sprint, nil
}

// UpdateStatus applies a guarded status transition, cascades the status
// propagator up the ancestor chain, and persists atomically.
func (s *Store) UpdateStatus(ctx context.Context, id string, newStatus story.Status) error {
	return s.Apply(ctx, func(g *story.Graph) error {
		rec := g.Get(id)
		if rec == nil {
			return fmt.Errorf("%w: %s", story.ErrStoryNotFound, id)
		}
		guard := story.CanTransition(story.TransitionContext{
			Record:        rec,
			NewStatus:     newStatus,
			ChildStatuses: g.ChildStatuses(rec),
		})
		if err := guard.Error(); err != nil {
			return err
		}
		if newStatus == story.StatusInProgress &&
			(rec.Status == story.StatusUnassigned || rec.Status == story.StatusBlocked) &&
			!g.DependenciesResolved(rec) {
			return fmt.Errorf("%w: %s has unresolved dependencies", story.ErrInvalidTransition, id)
		}
		now := s.now()
		result := story.ApplyStatusTransition(newStatus, now)
		rec.Status = result.NewStatus
		if result.CompletedAt != nil {
			rec.CompletedAt = result.CompletedAt
		}
		rec.UpdatedAt = now
		propagate.Cascade(g, rec.Parent, now)
		return nil
	})
}

// SetMetadata merges a mutation into the story's metadata and persists.
func (s *Store) SetMetadata(ctx context.Context, id string, mutate func(*story.Metadata)) error {
	return s.Apply(ctx, func(g *story.Graph) error {
		rec := g.Get(id)
		if rec == nil {
			return fmt.Errorf("%w: %s", story.ErrStoryNotFound, id)
		}
		mutate(rec.EnsureMetadata())
		rec.UpdatedAt = s.now()
		return nil
	})
}

// Apply runs a multi-record mutation against the graph and persists the
// result atomically. Status changes and new stories are journaled.
func (s *Store) Apply(ctx context.Context, mutate func(g *story.Graph) error) error {
	if err := s.guardMutable(); err != nil {
		return err
	}
	g, err := s.load()
	if err != nil {
		return err
	}
	before := make(map[string]story.Status, len(g.All()))
	for _, rec := range g.All() {
		before[rec.ID] = rec.Status
	}
	if err := mutate(g); err != nil {
		return err
	}
	if err := s.save(g); err != nil {
		return err
	}
	s.journalChanges(ctx, g, before)
	return nil
}

// Archive moves the sprint document into an archive/ sibling directory.
// Nothing in the engine calls this automatically.
func (s *Store) Archive() error {
	dir := filepath.Join(filepath.Dir(s.path), "archive")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}
	dest := filepath.Join(dir, filepath.Base(s.path))
	if err := os.Rename(s.path, dest); err != nil {
		return fmt.Errorf("failed to archive sprint document: %w", err)
	}
	return nil
}

// journalChanges diffs statuses before and after a mutation and records the
// differences. Journal failure degrades to a stderr warning.
func (s *Store) journalChanges(ctx context.Context, g *story.Graph, before map[string]story.Status) {
	if s.journal == nil {
		return
	}
	actor := ctxutil.ActorFromContext(ctx)
	for _, rec := range g.All() {
		old, existed := before[rec.ID]
		entry := &secondary.JournalEntry{
			SprintID: g.Sprint.ID,
			ActorID:  actor,
			StoryID:  rec.ID,
		}
		switch {
		case !existed:
			entry.Action = "create"
			entry.NewValue = string(rec.Status)
		case old != rec.Status:
			entry.Action = "update"
			entry.FieldName = "status"
			entry.OldValue = string(old)
			entry.NewValue = string(rec.Status)
		default:
			continue
		}
		if err := s.journal.Record(ctx, entry); err != nil {
			fmt.Fprintf(os.Stderr, "warning: journal write failed for %s: %v\n", rec.ID, err)
		}
	}
}

// Ensure Store implements the repository port.
var _ secondary.QueueRepository = (*Store)(nil)
