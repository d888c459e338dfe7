package story

import (
	"fmt"
	"strings"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, r.Reason)
}

// TransitionContext provides context for status transition guards.
type TransitionContext struct {
	Record        *Record
	NewStatus     Status
	ChildStatuses []Status // statuses of the record's children, if any
}

// CanTransition evaluates whether a status transition is structurally legal.
// Rules:
//   - New status must be a known status value
//   - A container can complete only when every child is completed or superseded
//   - A story leaves unassigned or blocked via activation only when every
//     dependency is resolved (checked by the caller via DependenciesResolved,
//     since the graph is not available here)
func CanTransition(ctx TransitionContext) GuardResult {
	if !ValidStatus(ctx.NewStatus) {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("unknown status %q", ctx.NewStatus),
		}
	}
	if ctx.NewStatus == StatusCompleted {
		for i, cs := range ctx.ChildStatuses {
			if !Resolved(cs) {
				return GuardResult{
					Allowed: false,
					Reason: fmt.Sprintf("cannot complete %s: child %s is %s",
						ctx.Record.ID, ctx.Record.Children[i], cs),
				}
			}
		}
	}
	return GuardResult{Allowed: true}
}

// ReconcileContext provides context for reconciliation guards.
type ReconcileContext struct {
	Target *Record
}

// CanReconcile evaluates whether a record is a legal reconciliation target.
// Rules:
//   - Target must be a validation-testing record
//   - Target status must be exactly blocked
func CanReconcile(ctx ReconcileContext) GuardResult {
	if ctx.Target.Type != TypeValidationTesting {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("%s is %s, not validation_testing", ctx.Target.ID, ctx.Target.Type),
		}
	}
	if ctx.Target.Status != StatusBlocked {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("%s is %s, not blocked", ctx.Target.ID, ctx.Target.Status),
		}
	}
	return GuardResult{Allowed: true}
}

// CanSupersede evaluates whether a manual supersede is acceptable.
// Rules:
//   - Reason must be non-empty after trimming whitespace
func CanSupersede(reason string) GuardResult {
	if strings.TrimSpace(reason) == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "supersede requires a non-empty reason",
		}
	}
	return GuardResult{Allowed: true}
}
