// Package reconcile contains the pure decision logic for resolving a
// blocked validation from remediation evidence, and the skip-logic gate the
// validation engine consults before re-running the pass-rate check.
package reconcile

import (
	"fmt"

	"github.com/example/sprintq/internal/core/overlap"
	"github.com/example/sprintq/internal/core/story"
)

// GateDecision is the skip-logic gate's answer for Check D.
type GateDecision struct {
	Skip   bool
	Reason string
	Mode   story.ReconciliationStatus // reconciliation mode backing the decision
}

// Gate decides whether the pass-rate check can be bypassed using the
// story's reconciliation metadata. A true needs_retest always forces a run
// regardless of status.
func Gate(meta *story.ReconciliationMetadata) GateDecision {
	if meta == nil {
		return GateDecision{Reason: "no reconciliation metadata", Mode: story.ReconciliationNone}
	}
	if meta.NeedsRetest {
		return GateDecision{Reason: "needs_retest set, re-run required", Mode: meta.Status}
	}
	switch meta.Status {
	case story.ReconciliationPropagated:
		return GateDecision{
			Skip: true,
			Reason: fmt.Sprintf("propagated from %s (overlap %.2f, pass rate %.2f)",
				meta.SourceRemediationID, meta.TestOverlapRatio, meta.PassRate),
			Mode: meta.Status,
		}
	case story.ReconciliationSuperseded:
		return GateDecision{
			Skip:   true,
			Reason: fmt.Sprintf("superseded: %s", meta.Reason),
			Mode:   meta.Status,
		}
	}
	return GateDecision{Reason: fmt.Sprintf("reconciliation status %s", meta.Status), Mode: meta.Status}
}

// AlreadyApplied reports whether a mode has already been applied to the
// target from the same remediation source. Re-applying is a no-op because
// the trigger may re-fire after a crash or restart.
func AlreadyApplied(target *story.Record, sourceID string, mode overlap.Mode) bool {
	if target.Metadata == nil || target.Metadata.Reconciliation == nil {
		return false
	}
	rc := target.Metadata.Reconciliation
	if rc.SourceRemediationID != sourceID {
		return false
	}
	switch mode {
	case overlap.ModePropagate:
		return rc.Status == story.ReconciliationPropagated && target.Status == story.StatusCompleted
	case overlap.ModeRetest:
		return rc.Status == story.ReconciliationRetest && target.Status == story.StatusUnassigned
	case overlap.ModeSupersede:
		return rc.Status == story.ReconciliationSuperseded && target.Status == story.StatusCompleted
	}
	return false
}
