package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/sprintq/internal/core/overlap"
	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/ports/primary"
)

func TestNextStoryDeterministic(t *testing.T) {
	repo := newTestStore(t,
		leafStory("5", story.StatusUnassigned),
		leafStory("6", story.StatusUnassigned),
	)
	svc := NewQueueService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		next, err := svc.NextStory(ctx)
		if err != nil {
			t.Fatalf("NextStory: %v", err)
		}
		if next == nil || next.ID != "5" {
			t.Fatalf("iteration %d: next = %+v, want story 5", i, next)
		}
	}
}

func TestNextStoryEmptyQueue(t *testing.T) {
	repo := newTestStore(t, leafStory("4", story.StatusCompleted))
	svc := NewQueueService(repo, nil)

	next, err := svc.NextStory(context.Background())
	if err != nil {
		t.Fatalf("NextStory: %v", err)
	}
	if next != nil {
		t.Errorf("next = %+v, want nil", next)
	}
}

func TestStartStory(t *testing.T) {
	repo := newTestStore(t, leafStory("4", story.StatusUnassigned))
	svc := NewQueueService(repo, nil)
	ctx := context.Background()

	if err := svc.StartStory(ctx, "4"); err != nil {
		t.Fatalf("StartStory: %v", err)
	}
	rec, _ := svc.GetStory(ctx, "4")
	if rec.Status != story.StatusInProgress {
		t.Errorf("status = %s, want in_progress", rec.Status)
	}
}

func TestReportPhaseRecordsOutcome(t *testing.T) {
	repo := newTestStore(t, leafStory("4", story.StatusInProgress))
	svc := NewQueueService(repo, nil)
	ctx := context.Background()

	resp, err := svc.ReportPhase(ctx, primary.ReportPhaseRequest{
		StoryID: "4",
		Phase:   story.PhaseImplementation,
		Status:  story.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("ReportPhase: %v", err)
	}
	if resp.Reconciliation != nil {
		t.Error("implementation phase must not trigger reconciliation")
	}

	rec, _ := svc.GetStory(ctx, "4")
	if rec.PhaseStatus[story.PhaseImplementation] != story.StatusCompleted {
		t.Errorf("phase status = %+v", rec.PhaseStatus)
	}
	if rec.Status != story.StatusInProgress {
		t.Errorf("story status = %s, want unchanged in_progress", rec.Status)
	}
}

func TestReportPhaseTestingCompletesStory(t *testing.T) {
	repo := newTestStore(t, leafStory("4", story.StatusInProgress))
	svc := NewQueueService(repo, nil)
	ctx := context.Background()

	_, err := svc.ReportPhase(ctx, primary.ReportPhaseRequest{
		StoryID: "4",
		Phase:   story.PhaseTesting,
		Status:  story.StatusCompleted,
		Summary: cleanSummary("a_test.go"),
	})
	if err != nil {
		t.Fatalf("ReportPhase: %v", err)
	}

	rec, _ := svc.GetStory(ctx, "4")
	if rec.Status != story.StatusCompleted {
		t.Errorf("status = %s, want completed", rec.Status)
	}
	if rec.CompletedAt == nil {
		t.Error("completion timestamp not set")
	}
	if rec.Metadata == nil || rec.Metadata.Validation == nil ||
		len(rec.Metadata.Validation.TestFiles) != 1 {
		t.Errorf("test evidence not recorded: %+v", rec.Metadata)
	}
}

func TestReportPhaseRejectsUnknownStatus(t *testing.T) {
	repo := newTestStore(t, leafStory("4", story.StatusInProgress))
	svc := NewQueueService(repo, nil)

	_, err := svc.ReportPhase(context.Background(), primary.ReportPhaseRequest{
		StoryID: "4",
		Phase:   story.PhaseTesting,
		Status:  story.Status("finished"),
	})
	if !errors.Is(err, story.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestReportPhaseRemediationTestingTriggersReconciliation(t *testing.T) {
	now := time.Now()
	target := leafStory("4", story.StatusBlocked)
	target.Children = []string{"-4.t", "4.1"}
	vt := &story.Record{
		ID: "-4.t", Type: story.TypeValidationTesting, Status: story.StatusBlocked,
		Parent: "4", CreatedAt: now, UpdatedAt: now,
		Metadata: &story.Metadata{
			Validation: &story.ValidationMetadata{TestFiles: []string{"a_test.go"}, PassRate: 0.6},
		},
	}
	rem := &story.Record{
		ID: "4.1", Type: story.TypeRemediation, Status: story.StatusInProgress,
		Parent: "4", CreatedAt: now, UpdatedAt: now,
		Metadata: &story.Metadata{
			TestFailure: &story.TestFailureMetadata{OriginalStoryID: "4", RecordedAt: now},
		},
	}
	repo := newTestStore(t, target, vt, rem)
	reconciler := NewReconciliationService(repo, &captureSink{})
	svc := NewQueueService(repo, reconciler)
	ctx := context.Background()

	resp, err := svc.ReportPhase(ctx, primary.ReportPhaseRequest{
		StoryID: "4.1",
		Phase:   story.PhaseTesting,
		Status:  story.StatusCompleted,
		Summary: cleanSummary("a_test.go"),
	})
	if err != nil {
		t.Fatalf("ReportPhase: %v", err)
	}
	if resp.Reconciliation == nil {
		t.Fatal("reconciliation did not fire")
	}
	if resp.Reconciliation.Mode != string(overlap.ModePropagate) {
		t.Fatalf("mode = %s, want propagate (%s)", resp.Reconciliation.Mode, resp.Reconciliation.Message)
	}

	vtAfter, _ := svc.GetStory(ctx, "-4.t")
	if vtAfter.Status != story.StatusCompleted {
		t.Errorf("validation-testing status = %s, want completed", vtAfter.Status)
	}
	parent, _ := svc.GetStory(ctx, "4")
	if parent.Status != story.StatusCompleted {
		t.Errorf("parent status = %s, want completed via propagation", parent.Status)
	}
}

func TestSprintStatusSummarizes(t *testing.T) {
	repo := newTestStore(t,
		leafStory("4", story.StatusCompleted),
		leafStory("5", story.StatusUnassigned),
		leafStory("6", story.StatusBlocked),
	)
	svc := NewQueueService(repo, nil)

	status, err := svc.SprintStatus(context.Background())
	if err != nil {
		t.Fatalf("SprintStatus: %v", err)
	}
	if status.Total != 3 {
		t.Errorf("total = %d, want 3", status.Total)
	}
	if status.ByStatus[story.StatusCompleted] != 1 || status.ByStatus[story.StatusBlocked] != 1 {
		t.Errorf("by status = %+v", status.ByStatus)
	}
	if len(status.Ready) != 1 || status.Ready[0] != "5" {
		t.Errorf("ready = %v, want [5]", status.Ready)
	}
}
