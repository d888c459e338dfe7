package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/sprintq/internal/adapters/queuefile"
	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/ports/secondary"
)

// captureSink records audit entries in memory for assertions.
type captureSink struct {
	entries []secondary.AuditEntry
}

func (c *captureSink) Append(entry secondary.AuditEntry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func (c *captureSink) lastFor(storyID string) *secondary.AuditEntry {
	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].StoryID == storyID {
			return &c.entries[i]
		}
	}
	return nil
}

// newTestStore initializes a sprint document in a temp dir.
func newTestStore(t *testing.T, stories ...*story.Record) *queuefile.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sprint.json")
	s := queuefile.New(path, nil)
	if err := s.Init(story.Sprint{ID: "sprint-1", Status: "active"}, stories); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

// readSprintFile returns the raw sprint document for byte-level comparison.
func readSprintFile(t *testing.T, s *queuefile.Store) string {
	t.Helper()
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read sprint document: %v", err)
	}
	return string(data)
}

func leafStory(id string, status story.Status) *story.Record {
	now := time.Now()
	return &story.Record{
		ID: id, Type: story.TypeFeature, Status: status,
		Title: "Story " + id, CreatedAt: now, UpdatedAt: now,
	}
}

// failingSummary reports 6 of 10 tests passing.
func failingSummary(files ...string) *story.TestRunSummary {
	return &story.TestRunSummary{
		Total: 10, Passed: 6, Failed: 4, PassRate: 0.6,
		TestFilePaths: files,
		Failures:      []string{"TestA", "TestB", "TestC", "TestD"},
	}
}

// cleanSummary reports every test passing.
func cleanSummary(files ...string) *story.TestRunSummary {
	return &story.TestRunSummary{
		Total: 10, Passed: 10, PassRate: 1.0,
		TestFilePaths: files,
	}
}
