package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/sprintq/internal/adapters/queuefile"
	"github.com/example/sprintq/internal/core/overlap"
	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/ports/primary"
)

// reconcileFixture builds the canonical post-validation shape: story 4
// blocked, its validation-testing record blocked with a recorded test-file
// set, and a completed remediation child carrying new test evidence.
func reconcileFixture(t *testing.T, origFiles, newFiles []string) (*ReconciliationServiceImpl, *captureSink, *queuefile.Store) {
	t.Helper()
	now := time.Now()

	target := leafStory("4", story.StatusBlocked)
	target.Children = []string{"-4.t", "4.1"}

	vt := &story.Record{
		ID: "-4.t", Type: story.TypeValidationTesting, Status: story.StatusBlocked,
		Parent: "4", CreatedAt: now, UpdatedAt: now,
		Metadata: &story.Metadata{
			Validation:     &story.ValidationMetadata{TestFiles: origFiles, PassRate: 0.6},
			Reconciliation: &story.ReconciliationMetadata{Status: story.ReconciliationNone, TargetValidationID: "-4.t"},
		},
	}

	rem := &story.Record{
		ID: "4.1", Type: story.TypeRemediation, Status: story.StatusCompleted,
		Parent: "4", CreatedAt: now, UpdatedAt: now,
		PhaseStatus: map[story.Phase]story.Status{
			story.PhaseTesting: story.StatusCompleted,
		},
		CompletedAt: &now,
		Metadata: &story.Metadata{
			TestFailure: &story.TestFailureMetadata{OriginalStoryID: "4", RecordedAt: now},
			Validation:  &story.ValidationMetadata{TestFiles: newFiles, PassRate: 1.0},
		},
	}

	repo := newTestStore(t, target, vt, rem)
	sink := &captureSink{}
	return NewReconciliationService(repo, sink), sink, repo
}

func TestTriggerReconciliationPropagates(t *testing.T) {
	svc, sink, repo := reconcileFixture(t,
		[]string{"a_test.go", "b_test.go"},
		[]string{"b_test.go", "a_test.go", "c_test.go"},
	)
	ctx := context.Background()

	outcome, err := svc.TriggerReconciliation(ctx, "4.1")
	if err != nil {
		t.Fatalf("TriggerReconciliation: %v", err)
	}
	if outcome.Mode != string(overlap.ModePropagate) {
		t.Fatalf("mode = %s, want propagate (%s)", outcome.Mode, outcome.Message)
	}
	if outcome.OverlapRatio != 1.0 {
		t.Errorf("ratio = %v, want 1.0", outcome.OverlapRatio)
	}

	vt, err := repo.Get(ctx, "-4.t")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if vt.Status != story.StatusCompleted {
		t.Errorf("target status = %s, want completed", vt.Status)
	}
	rc := vt.Metadata.Reconciliation
	if rc.Status != story.ReconciliationPropagated || rc.SourceRemediationID != "4.1" {
		t.Errorf("reconciliation metadata = %+v", rc)
	}
	if rc.AppliedAt == nil {
		t.Error("applied timestamp not set")
	}

	// Both children resolved, so the parent completes via propagation.
	parent, err := repo.Get(ctx, "4")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if parent.Status != story.StatusCompleted {
		t.Errorf("parent status = %s, want completed", parent.Status)
	}

	entry := sink.lastFor("-4.t")
	if entry == nil || entry.ReconciliationMode != string(overlap.ModePropagate) {
		t.Errorf("audit entry = %+v, want propagate decision", entry)
	}
}

func TestTriggerReconciliationEmptyOriginalSetPropagates(t *testing.T) {
	// A recorded-but-empty test-file set is trivially covered.
	svc, _, repo := reconcileFixture(t, []string{}, []string{"z_test.go"})

	outcome, err := svc.TriggerReconciliation(context.Background(), "4.1")
	if err != nil {
		t.Fatalf("TriggerReconciliation: %v", err)
	}
	if outcome.Mode != string(overlap.ModePropagate) {
		t.Fatalf("mode = %s, want propagate", outcome.Mode)
	}
	vt, _ := repo.Get(context.Background(), "-4.t")
	if vt.Status != story.StatusCompleted {
		t.Errorf("target status = %s, want completed", vt.Status)
	}
}

func TestTriggerReconciliationRetest(t *testing.T) {
	svc, _, repo := reconcileFixture(t,
		[]string{"a_test.go", "b_test.go"},
		[]string{"a_test.go"},
	)
	ctx := context.Background()

	outcome, err := svc.TriggerReconciliation(ctx, "4.1")
	if err != nil {
		t.Fatalf("TriggerReconciliation: %v", err)
	}
	if outcome.Mode != string(overlap.ModeRetest) {
		t.Fatalf("mode = %s, want retest (%s)", outcome.Mode, outcome.Message)
	}

	vt, err := repo.Get(ctx, "-4.t")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if vt.Status != story.StatusUnassigned {
		t.Errorf("target status = %s, want unassigned for retest", vt.Status)
	}
	rc := vt.Metadata.Reconciliation
	if rc.Status != story.ReconciliationRetest || !rc.NeedsRetest {
		t.Errorf("reconciliation metadata = %+v", rc)
	}

	// The parent leaves blocked but must not complete: the target is
	// unassigned, not resolved.
	parent, _ := repo.Get(ctx, "4")
	if parent.Status != story.StatusInProgress {
		t.Errorf("parent status = %s, want in_progress", parent.Status)
	}
}

func TestTriggerReconciliationNoMatchLeavesBlocked(t *testing.T) {
	svc, sink, repo := reconcileFixture(t,
		[]string{"a_test.go", "b_test.go", "c_test.go"},
		[]string{"z_test.go"},
	)
	ctx := context.Background()

	outcome, err := svc.TriggerReconciliation(ctx, "4.1")
	if err != nil {
		t.Fatalf("TriggerReconciliation: %v", err)
	}
	if outcome.Mode != primary.OutcomeSkipped {
		t.Fatalf("mode = %s, want skipped", outcome.Mode)
	}

	vt, _ := repo.Get(ctx, "-4.t")
	if vt.Status != story.StatusBlocked {
		t.Errorf("target status = %s, want still blocked", vt.Status)
	}
	entry := sink.lastFor("-4.t")
	if entry == nil || entry.ReconciliationMode != string(overlap.ModeNoMatch) {
		t.Errorf("audit entry = %+v, want no_match decision", entry)
	}
}

func TestTriggerReconciliationIdempotent(t *testing.T) {
	svc, _, repo := reconcileFixture(t,
		[]string{"a_test.go"},
		[]string{"a_test.go"},
	)
	ctx := context.Background()

	first, err := svc.TriggerReconciliation(ctx, "4.1")
	if err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if first.Mode != string(overlap.ModePropagate) {
		t.Fatalf("first mode = %s, want propagate", first.Mode)
	}

	afterFirst := readSprintFile(t, repo)
	second, err := svc.TriggerReconciliation(ctx, "4.1")
	if err != nil {
		t.Fatalf("re-fired trigger: %v", err)
	}
	if second.Mode != primary.OutcomeSkipped {
		t.Errorf("re-fired mode = %s, want skipped", second.Mode)
	}
	vt, _ := repo.Get(ctx, "-4.t")
	if vt.Status != story.StatusCompleted {
		t.Errorf("target status = %s after re-fire, want completed", vt.Status)
	}
	if afterSecond := readSprintFile(t, repo); afterSecond != afterFirst {
		t.Error("re-fired trigger rewrote the sprint document")
	}
}

func TestTriggerReconciliationMissingEvidenceFailsSafe(t *testing.T) {
	svc, sink, repo := reconcileFixture(t, []string{"a_test.go"}, nil)
	ctx := context.Background()

	// Strip the remediation's test evidence entirely.
	err := repo.SetMetadata(ctx, "4.1", func(m *story.Metadata) {
		m.Validation = nil
	})
	if err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}

	outcome, err := svc.TriggerReconciliation(ctx, "4.1")
	if err != nil {
		t.Fatalf("TriggerReconciliation: %v", err)
	}
	if outcome.Mode != primary.OutcomeSkipped {
		t.Fatalf("mode = %s, want skipped", outcome.Mode)
	}

	vt, _ := repo.Get(ctx, "-4.t")
	if vt.Status != story.StatusBlocked {
		t.Errorf("target status = %s, want still blocked", vt.Status)
	}
	entry := sink.lastFor("-4.t")
	if entry == nil || entry.ReconciliationMode != string(overlap.ModeNoMatch) {
		t.Errorf("audit entry = %+v, want fail-safe no_match", entry)
	}
}

func TestTriggerReconciliationRefusesWrongSource(t *testing.T) {
	svc, _, _ := reconcileFixture(t, []string{"a_test.go"}, []string{"a_test.go"})
	ctx := context.Background()

	outcome, err := svc.TriggerReconciliation(ctx, "4")
	if err != nil {
		t.Fatalf("TriggerReconciliation: %v", err)
	}
	if outcome.Mode != primary.OutcomeSkipped {
		t.Errorf("non-remediation source: mode = %s, want skipped", outcome.Mode)
	}
}

func TestSupersede(t *testing.T) {
	svc, sink, repo := reconcileFixture(t, []string{"a_test.go"}, nil)
	ctx := context.Background()

	if _, err := svc.Supersede(ctx, "-4.t", "   "); !errors.Is(err, story.ErrInvalidTransition) {
		t.Errorf("blank reason: err = %v, want ErrInvalidTransition", err)
	}

	outcome, err := svc.Supersede(ctx, "-4.t", "feature descoped from sprint")
	if err != nil {
		t.Fatalf("Supersede: %v", err)
	}
	if outcome.Mode != string(overlap.ModeSupersede) {
		t.Fatalf("mode = %s, want supersede", outcome.Mode)
	}

	vt, _ := repo.Get(ctx, "-4.t")
	if vt.Status != story.StatusCompleted {
		t.Errorf("target status = %s, want completed", vt.Status)
	}
	rc := vt.Metadata.Reconciliation
	if rc.Status != story.ReconciliationSuperseded || rc.Reason != "feature descoped from sprint" {
		t.Errorf("reconciliation metadata = %+v", rc)
	}
	entry := sink.lastFor("-4.t")
	if entry == nil || entry.ReconciliationMode != string(overlap.ModeSupersede) {
		t.Errorf("audit entry = %+v, want supersede decision", entry)
	}

	// Superseding again is a no-op, not an error.
	again, err := svc.Supersede(ctx, "-4.t", "still descoped")
	if err != nil {
		t.Fatalf("second Supersede: %v", err)
	}
	if again.Mode != primary.OutcomeSkipped {
		t.Errorf("second supersede mode = %s, want skipped", again.Mode)
	}
}
