// Package primary defines the primary ports (driving interfaces) of the
// sprint queue engine: the operations an external execution driver calls.
package primary

import (
	"context"

	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/core/validation"
)

// QueueService defines the primary port for queue scheduling operations.
type QueueService interface {
	// NextStory returns the next eligible story, or nil when none is ready.
	// Repeated calls against unchanged state return the same story.
	NextStory(ctx context.Context) (*story.Record, error)

	// ListReady returns all eligible stories in deterministic order.
	ListReady(ctx context.Context) ([]*story.Record, error)

	// ListStories returns every story in declared sprint order.
	ListStories(ctx context.Context) ([]*story.Record, error)

	// GetStory retrieves one story by id.
	GetStory(ctx context.Context, id string) (*story.Record, error)

	// StartStory moves a ready story to in_progress.
	StartStory(ctx context.Context, id string) error

	// ReportPhase records the outcome of a phase the driver executed
	// externally. Completing the testing phase of a remediation story
	// triggers reconciliation automatically.
	ReportPhase(ctx context.Context, req ReportPhaseRequest) (*ReportPhaseResponse, error)

	// SprintStatus summarizes the sprint for presentation.
	SprintStatus(ctx context.Context) (*SprintStatus, error)
}

// ReportPhaseRequest carries a driver's structured phase result.
type ReportPhaseRequest struct {
	StoryID string
	Phase   story.Phase
	Status  story.Status
	Summary *story.TestRunSummary // testing phase only
}

// ReportPhaseResponse reports what the engine did with the phase result.
type ReportPhaseResponse struct {
	StoryID        string
	Phase          story.Phase
	Status         story.Status
	Reconciliation *ReconciliationOutcome // set when reconciliation fired
}

// SprintStatus is a presentation-ready sprint summary.
type SprintStatus struct {
	Sprint   story.Sprint
	Total    int
	ByStatus map[story.Status]int
	Ready    []string // ids in scheduling order
}

// ValidationService defines the primary port for the validation engine.
type ValidationService interface {
	// SubmitValidation runs checks A-H against a story's completed phase
	// using the reported test summary and returns the typed result.
	SubmitValidation(ctx context.Context, req SubmitValidationRequest) (*validation.Result, error)
}

// SubmitValidationRequest carries the external test runner's summary for a
// story whose phase work just finished.
type SubmitValidationRequest struct {
	StoryID string
	Summary *story.TestRunSummary
}

// ReconciliationService defines the primary port for the reconciliation
// engine.
type ReconciliationService interface {
	// TriggerReconciliation resolves a blocked validation from a completed
	// remediation story's test evidence. Expected steady-state refusals
	// (target missing, not blocked, already reconciled) come back as a
	// skipped outcome, not an error.
	TriggerReconciliation(ctx context.Context, remediationID string) (*ReconciliationOutcome, error)

	// Supersede manually marks a blocked validation as resolved. The reason
	// must be non-empty.
	Supersede(ctx context.Context, targetID, reason string) (*ReconciliationOutcome, error)
}

// ReconciliationOutcome is the typed result of a reconciliation attempt.
type ReconciliationOutcome struct {
	Mode         string  `json:"mode"` // propagate | retest | supersede | no_match | skipped
	TargetID     string  `json:"target_id,omitempty"`
	OverlapRatio float64 `json:"overlap_ratio,omitempty"`
	Message      string  `json:"message"`
}

// OutcomeSkipped names the mode of a no-op reconciliation result.
const OutcomeSkipped = "skipped"
