package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/sprintq/internal/core/overlap"
	"github.com/example/sprintq/internal/core/propagate"
	"github.com/example/sprintq/internal/core/reconcile"
	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/ports/primary"
	"github.com/example/sprintq/internal/ports/secondary"
)

// ReconciliationServiceImpl implements the ReconciliationService interface.
type ReconciliationServiceImpl struct {
	repo  secondary.QueueRepository
	audit secondary.AuditSink
	now   func() time.Time
}

// NewReconciliationService creates a new ReconciliationService with
// injected dependencies.
func NewReconciliationService(repo secondary.QueueRepository, audit secondary.AuditSink) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{repo: repo, audit: audit, now: time.Now}
}

// errNoMutation aborts an Apply cycle whose outcome is a no-op, so nothing
// is rewritten on disk for skipped results.
var errNoMutation = errors.New("no mutation")

// TriggerReconciliation resolves a blocked validation from a completed
// remediation story's test evidence. Expected steady-state refusals come
// back as a skipped outcome rather than an error; the trigger may re-fire
// after a crash or restart.
func (s *ReconciliationServiceImpl) TriggerReconciliation(ctx context.Context, remediationID string) (*primary.ReconciliationOutcome, error) {
	rem, err := s.repo.Get(ctx, remediationID)
	if err != nil {
		return nil, err
	}
	if rem.Type != story.TypeRemediation {
		return skipped("", fmt.Sprintf("%s is %s, not a remediation story", remediationID, rem.Type)), nil
	}
	if rem.PhaseStatus[story.PhaseTesting] != story.StatusCompleted {
		return skipped("", fmt.Sprintf("%s testing phase is not completed", remediationID)), nil
	}
	if rem.Metadata == nil || rem.Metadata.TestFailure == nil || rem.Metadata.TestFailure.OriginalStoryID == "" {
		return skipped("", fmt.Sprintf("%s carries no original story link", remediationID)), nil
	}
	targetID := story.ValidationTestingID(rem.Metadata.TestFailure.OriginalStoryID)

	// Missing test evidence on either side fails safe toward no_match:
	// better to re-run tests than to falsely propagate a pass.
	var newFiles []string
	var passRate float64
	evidenceMissing := rem.Metadata.Validation == nil
	if !evidenceMissing {
		newFiles = rem.Metadata.Validation.TestFiles
		passRate = rem.Metadata.Validation.PassRate
	}

	var outcome *primary.ReconciliationOutcome
	err = s.repo.Apply(ctx, func(g *story.Graph) error {
		target := g.Get(targetID)
		if target == nil {
			outcome = skipped(targetID, fmt.Sprintf("target %s not found", targetID))
			return errNoMutation
		}
		if guard := story.CanReconcile(story.ReconcileContext{Target: target}); !guard.Allowed {
			// An already-reconciled target is the idempotent re-fire case.
			if rc := reconciliationOf(target); rc != nil && rc.SourceRemediationID == remediationID && rc.Status != story.ReconciliationNone {
				outcome = skipped(targetID, fmt.Sprintf("already reconciled from %s (%s)", remediationID, rc.Status))
				return errNoMutation
			}
			outcome = skipped(targetID, guard.Reason)
			return errNoMutation
		}

		if target.Metadata == nil || target.Metadata.Validation == nil {
			evidenceMissing = true
		}
		if evidenceMissing {
			outcome = skipped(targetID, fmt.Sprintf("%v: treated as no_match", story.ErrOverlapInputMissing))
			s.auditDecision(targetID, overlap.ModeNoMatch, outcome.Message)
			return errNoMutation
		}

		ratio := overlap.Ratio(target.Metadata.Validation.TestFiles, newFiles)
		mode := overlap.DetermineMode(ratio)
		if reconcile.AlreadyApplied(target, remediationID, mode) {
			outcome = skipped(targetID, fmt.Sprintf("already reconciled from %s", remediationID))
			outcome.OverlapRatio = ratio
			return errNoMutation
		}
		now := s.now()

		switch mode {
		case overlap.ModeNoMatch:
			outcome = skipped(targetID, "overlap below threshold")
			outcome.OverlapRatio = ratio
			s.auditDecision(targetID, mode, fmt.Sprintf("overlap %.2f below %.2f, manual intervention required", ratio, overlap.RetestThreshold))
			return errNoMutation

		case overlap.ModePropagate:
			result := story.ApplyStatusTransition(story.StatusCompleted, now)
			target.Status = result.NewStatus
			target.CompletedAt = result.CompletedAt
			target.EnsureMetadata().Reconciliation = &story.ReconciliationMetadata{
				Status:              story.ReconciliationPropagated,
				SourceRemediationID: remediationID,
				TargetValidationID:  targetID,
				TestOverlapRatio:    ratio,
				PassRate:            passRate,
				AppliedAt:           &now,
			}
			target.UpdatedAt = now
			propagate.Cascade(g, target.Parent, now)
			outcome = &primary.ReconciliationOutcome{
				Mode:         string(mode),
				TargetID:     targetID,
				OverlapRatio: ratio,
				Message:      fmt.Sprintf("propagated pass from %s (overlap %.2f, pass rate %.2f)", remediationID, ratio, passRate),
			}
			s.auditDecision(targetID, mode, outcome.Message)
			return nil

		case overlap.ModeRetest:
			reason := fmt.Sprintf("overlap %.2f covers only part of the recorded test set", ratio)
			target.Status = story.StatusUnassigned
			target.EnsureMetadata().Reconciliation = &story.ReconciliationMetadata{
				Status:              story.ReconciliationRetest,
				SourceRemediationID: remediationID,
				TargetValidationID:  targetID,
				TestOverlapRatio:    ratio,
				PassRate:            passRate,
				NeedsRetest:         true,
				Reason:              reason,
				AppliedAt:           &now,
			}
			target.UpdatedAt = now
			// Ancestors leave blocked but are never advanced to completed
			// here: the unblocked target is unassigned, not resolved.
			propagate.Cascade(g, target.Parent, now)
			outcome = &primary.ReconciliationOutcome{
				Mode:         string(mode),
				TargetID:     targetID,
				OverlapRatio: ratio,
				Message:      fmt.Sprintf("unblocked %s for retest: %s", targetID, reason),
			}
			s.auditDecision(targetID, mode, outcome.Message)
			return nil
		}
		outcome = skipped(targetID, fmt.Sprintf("unexpected mode %s", mode))
		return errNoMutation
	})
	if err != nil && !errors.Is(err, errNoMutation) {
		return nil, err
	}
	return outcome, nil
}

// Supersede manually marks a blocked validation as resolved. Never
// auto-selected; requires a non-empty human-supplied reason.
func (s *ReconciliationServiceImpl) Supersede(ctx context.Context, targetID, reason string) (*primary.ReconciliationOutcome, error) {
	if guard := story.CanSupersede(reason); !guard.Allowed {
		return nil, guard.Error()
	}
	var outcome *primary.ReconciliationOutcome
	err := s.repo.Apply(ctx, func(g *story.Graph) error {
		target := g.Get(targetID)
		if target == nil {
			return fmt.Errorf("%w: %s", story.ErrStoryNotFound, targetID)
		}
		if guard := story.CanReconcile(story.ReconcileContext{Target: target}); !guard.Allowed {
			if rc := reconciliationOf(target); rc != nil && rc.Status == story.ReconciliationSuperseded {
				outcome = skipped(targetID, "already superseded")
				return errNoMutation
			}
			return guard.Error()
		}
		now := s.now()
		result := story.ApplyStatusTransition(story.StatusCompleted, now)
		target.Status = result.NewStatus
		target.CompletedAt = result.CompletedAt
		target.EnsureMetadata().Reconciliation = &story.ReconciliationMetadata{
			Status:             story.ReconciliationSuperseded,
			TargetValidationID: targetID,
			Reason:             reason,
			AppliedAt:          &now,
		}
		target.UpdatedAt = now
		propagate.Cascade(g, target.Parent, now)
		outcome = &primary.ReconciliationOutcome{
			Mode:     string(overlap.ModeSupersede),
			TargetID: targetID,
			Message:  fmt.Sprintf("superseded %s: %s", targetID, reason),
		}
		s.auditDecision(targetID, overlap.ModeSupersede, outcome.Message)
		return nil
	})
	if err != nil && !errors.Is(err, errNoMutation) {
		return nil, err
	}
	return outcome, nil
}

// auditDecision appends a reconciliation decision to the audit log.
func (s *ReconciliationServiceImpl) auditDecision(targetID string, mode overlap.Mode, reason string) {
	appendAudit(s.audit, secondary.AuditEntry{
		Timestamp:          s.now(),
		StoryID:            targetID,
		Action:             "reconcile",
		Reason:             reason,
		ReconciliationMode: string(mode),
	})
}

func reconciliationOf(rec *story.Record) *story.ReconciliationMetadata {
	if rec.Metadata == nil {
		return nil
	}
	return rec.Metadata.Reconciliation
}

func skipped(targetID, message string) *primary.ReconciliationOutcome {
	return &primary.ReconciliationOutcome{
		Mode:     primary.OutcomeSkipped,
		TargetID: targetID,
		Message:  message,
	}
}

// Ensure ReconciliationServiceImpl implements the interface.
var _ primary.ReconciliationService = (*ReconciliationServiceImpl)(nil)
