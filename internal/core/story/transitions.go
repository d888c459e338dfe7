package story

import "time"

// TransitionResult captures the effects of applying a status transition.
type TransitionResult struct {
	NewStatus   Status
	CompletedAt *time.Time // set when transitioning to completed
}

// ApplyStatusTransition applies a status transition and returns the result.
// When the status becomes completed the completion timestamp is set; the
// caller supplies the current time to keep this testable.
func ApplyStatusTransition(newStatus Status, now time.Time) TransitionResult {
	result := TransitionResult{NewStatus: newStatus}
	if newStatus == StatusCompleted {
		result.CompletedAt = &now
	}
	return result
}

// InitialStatus returns the status a newly planned story starts in.
func InitialStatus() Status {
	return StatusUnassigned
}
