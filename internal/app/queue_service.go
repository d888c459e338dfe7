package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/sprintq/internal/core/propagate"
	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/ports/primary"
	"github.com/example/sprintq/internal/ports/secondary"
)

// QueueServiceImpl implements the QueueService interface.
type QueueServiceImpl struct {
	repo       secondary.QueueRepository
	reconciler primary.ReconciliationService
	now        func() time.Time
}

// NewQueueService creates a new QueueService with injected dependencies.
// The reconciler is invoked automatically when a remediation story's testing
// phase completes.
func NewQueueService(repo secondary.QueueRepository, reconciler primary.ReconciliationService) *QueueServiceImpl {
	return &QueueServiceImpl{repo: repo, reconciler: reconciler, now: time.Now}
}

// NextStory returns the next eligible story, or nil when none is ready.
func (s *QueueServiceImpl) NextStory(ctx context.Context) (*story.Record, error) {
	ready, err := s.repo.ListReady(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ready stories: %w", err)
	}
	if len(ready) == 0 {
		return nil, nil
	}
	return ready[0], nil
}

// ListReady returns all eligible stories in deterministic order.
func (s *QueueServiceImpl) ListReady(ctx context.Context) ([]*story.Record, error) {
	return s.repo.ListReady(ctx)
}

// ListStories returns every story in declared sprint order.
func (s *QueueServiceImpl) ListStories(ctx context.Context) ([]*story.Record, error) {
	return s.repo.List(ctx)
}

// GetStory retrieves one story by id.
func (s *QueueServiceImpl) GetStory(ctx context.Context, id string) (*story.Record, error) {
	return s.repo.Get(ctx, id)
}

// StartStory moves a ready story to in_progress.
func (s *QueueServiceImpl) StartStory(ctx context.Context, id string) error {
	return s.repo.UpdateStatus(ctx, id, story.StatusInProgress)
}

// ReportPhase records a phase outcome the driver produced externally. The
// testing phase of a remediation story additionally triggers reconciliation
// right after the record is persisted.
func (s *QueueServiceImpl) ReportPhase(ctx context.Context, req primary.ReportPhaseRequest) (*primary.ReportPhaseResponse, error) {
	var isRemediation bool
	err := s.repo.Apply(ctx, func(g *story.Graph) error {
		rec := g.Get(req.StoryID)
		if rec == nil {
			return fmt.Errorf("%w: %s", story.ErrStoryNotFound, req.StoryID)
		}
		if !story.ValidStatus(req.Status) {
			return fmt.Errorf("%w: unknown phase status %q", story.ErrInvalidTransition, req.Status)
		}
		now := s.now()
		if rec.PhaseStatus == nil {
			rec.PhaseStatus = map[story.Phase]story.Status{}
		}
		rec.PhaseStatus[req.Phase] = req.Status
		if req.Phase == story.PhaseTesting && req.Summary != nil {
			m := rec.EnsureMetadata()
			if m.Validation == nil {
				m.Validation = &story.ValidationMetadata{}
			}
			m.Validation.TestFiles = append([]string(nil), req.Summary.TestFilePaths...)
			m.Validation.PassRate = req.Summary.PassRate
			m.Validation.LastRunAt = &now
		}
		// Testing is the final phase: completing it completes the story.
		if req.Phase == story.PhaseTesting && req.Status == story.StatusCompleted {
			result := story.ApplyStatusTransition(story.StatusCompleted, now)
			rec.Status = result.NewStatus
			rec.CompletedAt = result.CompletedAt
		}
		rec.UpdatedAt = now
		propagate.Cascade(g, rec.Parent, now)
		isRemediation = rec.Type == story.TypeRemediation
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &primary.ReportPhaseResponse{
		StoryID: req.StoryID,
		Phase:   req.Phase,
		Status:  req.Status,
	}
	if isRemediation && req.Phase == story.PhaseTesting && req.Status == story.StatusCompleted && s.reconciler != nil {
		outcome, err := s.reconciler.TriggerReconciliation(ctx, req.StoryID)
		if err != nil {
			return nil, fmt.Errorf("reconciliation after %s failed: %w", req.StoryID, err)
		}
		resp.Reconciliation = outcome
	}
	return resp, nil
}

// SprintStatus summarizes the sprint for presentation.
func (s *QueueServiceImpl) SprintStatus(ctx context.Context) (*primary.SprintStatus, error) {
	sprint, err := s.repo.Sprint(ctx)
	if err != nil {
		return nil, err
	}
	stories, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	ready, err := s.repo.ListReady(ctx)
	if err != nil {
		return nil, err
	}
	status := &primary.SprintStatus{
		Sprint:   sprint,
		Total:    len(stories),
		ByStatus: map[story.Status]int{},
	}
	for _, rec := range stories {
		status.ByStatus[rec.Status]++
	}
	for _, rec := range ready {
		status.Ready = append(status.Ready, rec.ID)
	}
	return status, nil
}

// Ensure QueueServiceImpl implements the interface.
var _ primary.QueueService = (*QueueServiceImpl)(nil)
