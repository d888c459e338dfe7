package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/sprintq/internal/core/propagate"
	"github.com/example/sprintq/internal/core/reconcile"
	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/core/validation"
	"github.com/example/sprintq/internal/ports/primary"
	"github.com/example/sprintq/internal/ports/secondary"
)

// ValidationServiceImpl implements the ValidationService interface.
type ValidationServiceImpl struct {
	repo  secondary.QueueRepository
	audit secondary.AuditSink
	now   func() time.Time
}

// NewValidationService creates a new ValidationService with injected
// dependencies.
func NewValidationService(repo secondary.QueueRepository, audit secondary.AuditSink) *ValidationServiceImpl {
	return &ValidationServiceImpl{repo: repo, audit: audit, now: time.Now}
}

// SubmitValidation runs checks A-H against a story using the reported test
// summary. Auto-repairs, the verdict, and any spawned remediation story are
// persisted in one atomic write.
func (s *ValidationServiceImpl) SubmitValidation(ctx context.Context, req primary.SubmitValidationRequest) (*validation.Result, error) {
	targetID := req.StoryID
	if story.IsValidationTestingID(targetID) {
		resolved, err := story.ValidationTarget(targetID)
		if err != nil {
			return nil, err
		}
		targetID = resolved
	}

	var result validation.Result
	err := s.repo.Apply(ctx, func(g *story.Graph) error {
		target := g.Get(targetID)
		if target == nil {
			return fmt.Errorf("%w: %s", story.ErrStoryNotFound, targetID)
		}
		now := s.now()
		vtID := story.ValidationTestingID(targetID)
		vt := g.Get(vtID)

		decision := s.consultGate(target, vt, req.Summary)

		// Checks repair a working copy; the copy replaces the live record
		// only when the run finishes, alongside the recorded result.
		working := target.Clone()
		result = validation.Run(validation.Input{
			Story:      working,
			Graph:      g,
			Summary:    req.Summary,
			SkipD:      decision.Skip,
			SkipDetail: decision.Reason,
			Now:        now,
		})
		*target = *working
		target.UpdatedAt = now

		m := target.EnsureMetadata()
		if m.Validation == nil {
			m.Validation = &story.ValidationMetadata{}
		}
		m.Validation.FailedChecks = result.FailedChecks
		m.Validation.AppliedFixes = result.AppliedFixes
		m.Validation.LastRunAt = &now
		if req.Summary != nil {
			m.Validation.TestFiles = append([]string(nil), req.Summary.TestFilePaths...)
			m.Validation.PassRate = req.Summary.PassRate
		}

		if result.Verdict == validation.VerdictBlocked {
			target.Status = story.StatusBlocked
			if containsCheck(result.FailedChecks, validation.CheckPassRate) {
				if err := s.blockValidationTesting(g, target, vt, vtID, req.Summary, now); err != nil {
					return err
				}
				if err := s.spawnRemediation(g, target, req.Summary, now); err != nil {
					return err
				}
			}
		}
		propagate.Cascade(g, target.Parent, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// consultGate asks the skip-logic gate whether the pass-rate check may be
// bypassed and appends the decision to the audit log. The reconciliation
// metadata lives on the validation-testing record when one exists.
func (s *ValidationServiceImpl) consultGate(target, vt *story.Record, summary *story.TestRunSummary) reconcile.GateDecision {
	var meta *story.ReconciliationMetadata
	if vt != nil && vt.Metadata != nil {
		meta = vt.Metadata.Reconciliation
	} else if target.Metadata != nil {
		meta = target.Metadata.Reconciliation
	}
	decision := reconcile.Gate(meta)

	action := "run"
	if decision.Skip {
		action = "skip"
	}
	reason := decision.Reason
	if summary != nil {
		reason = fmt.Sprintf("%s; reported %d/%d passing", reason, summary.Passed, summary.Total)
	}
	appendAudit(s.audit, secondary.AuditEntry{
		Timestamp:          s.now(),
		StoryID:            target.ID,
		Check:              string(validation.CheckPassRate),
		Action:             action,
		Reason:             reason,
		ReconciliationMode: string(decision.Mode),
	})
	return decision
}

// blockValidationTesting marks the validation-testing record blocked,
// records the test-file set the failed run was based on, and leaves a
// reconciliation placeholder pointing at the not-yet-created remediation
// outcome. The record is created if sprint planning did not include it.
func (s *ValidationServiceImpl) blockValidationTesting(g *story.Graph, target, vt *story.Record, vtID string, summary *story.TestRunSummary, now time.Time) error {
	if vt == nil {
		vt = &story.Record{
			ID:        vtID,
			Type:      story.TypeValidationTesting,
			Status:    story.StatusBlocked,
			Title:     fmt.Sprintf("Validate story %s", target.ID),
			Parent:    target.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := g.Add(vt); err != nil {
			return err
		}
	} else {
		vt.Status = story.StatusBlocked
		vt.UpdatedAt = now
	}
	m := vt.EnsureMetadata()
	if m.Validation == nil {
		m.Validation = &story.ValidationMetadata{}
	}
	if summary != nil {
		m.Validation.TestFiles = append([]string(nil), summary.TestFilePaths...)
		m.Validation.PassRate = summary.PassRate
	}
	m.Validation.LastRunAt = &now
	m.Reconciliation = &story.ReconciliationMetadata{
		Status:             story.ReconciliationNone,
		TargetValidationID: vtID,
	}
	return nil
}

// spawnRemediation creates the next remediation child carrying the failing
// test identifiers.
func (s *ValidationServiceImpl) spawnRemediation(g *story.Graph, target *story.Record, summary *story.TestRunSummary, now time.Time) error {
	remID := story.NextRemediationID(target.ID, target.Children)
	rem := &story.Record{
		ID:        remID,
		Type:      story.TypeRemediation,
		Status:    story.InitialStatus(),
		Title:     fmt.Sprintf("Fix failing tests for story %s", target.ID),
		Parent:    target.ID,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: &story.Metadata{
			TestFailure: &story.TestFailureMetadata{
				OriginalStoryID: target.ID,
				RecordedAt:      now,
			},
		},
	}
	if summary != nil {
		rem.Metadata.TestFailure.FailedTests = append([]string(nil), summary.Failures...)
		rem.Metadata.TestFailure.PassRate = summary.PassRate
		rem.Metadata.TestFailure.Total = summary.Total
		rem.Metadata.TestFailure.Failed = summary.Failed
	}
	return g.Add(rem)
}

func containsCheck(failed []string, c validation.Check) bool {
	for _, f := range failed {
		if f == string(c) {
			return true
		}
	}
	return false
}

// Ensure ValidationServiceImpl implements the interface.
var _ primary.ValidationService = (*ValidationServiceImpl)(nil)
