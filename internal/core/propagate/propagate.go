// Package propagate recomputes container statuses from child statuses.
// The rule table is pure; Cascade applies it up the ancestor chain of the
// in-memory graph, stopping as soon as a recomputation changes nothing.
package propagate

import (
	"time"

	"github.com/example/sprintq/internal/core/story"
)

// Compute derives a container status from its child statuses. Priority
// rules, first match wins:
//   - any child blocked     -> blocked
//   - any child in_progress -> in_progress
//   - all children resolved -> completed
//   - otherwise             -> in_progress
func Compute(children []story.Status) story.Status {
	allResolved := true
	anyInProgress := false
	for _, s := range children {
		switch {
		case s == story.StatusBlocked:
			return story.StatusBlocked
		case s == story.StatusInProgress:
			anyInProgress = true
		}
		if !story.Resolved(s) {
			allResolved = false
		}
	}
	if anyInProgress {
		return story.StatusInProgress
	}
	if allResolved {
		return story.StatusCompleted
	}
	return story.StatusInProgress
}

// Change records one container status rewrite performed by Cascade.
type Change struct {
	ID   string
	From story.Status
	To   story.Status
}

// Cascade recomputes the status of parentID and recurses to grandparents
// only while the computed status actually changes. Leaf stories are never
// touched. Passing an empty or unknown id is a no-op.
func Cascade(g *story.Graph, parentID string, now time.Time) []Change {
	var changes []Change
	for id := parentID; id != ""; {
		rec := g.Get(id)
		if rec == nil || !rec.Container() {
			break
		}
		next := Compute(g.ChildStatuses(rec))
		if next == rec.Status {
			break
		}
		changes = append(changes, Change{ID: id, From: rec.Status, To: next})
		result := story.ApplyStatusTransition(next, now)
		rec.Status = result.NewStatus
		if result.CompletedAt != nil {
			rec.CompletedAt = result.CompletedAt
		}
		rec.UpdatedAt = now
		id = rec.Parent
	}
	return changes
}
