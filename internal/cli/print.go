package cli

import (
	"context"

	"github.com/fatih/color"

	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/ctxutil"
	"github.com/example/sprintq/internal/wire"
)

// cmdContext returns the base context for CLI commands with the configured
// actor attached, so journal entries attribute mutations.
func cmdContext() context.Context {
	return ctxutil.WithActorID(context.Background(), wire.Config().Actor)
}

// statusLabel renders a story status with its conventional color.
func statusLabel(s story.Status) string {
	switch s {
	case story.StatusCompleted:
		return color.New(color.FgHiGreen).Sprintf("[%s]", s)
	case story.StatusInProgress:
		return color.New(color.FgHiBlue).Sprintf("[%s]", s)
	case story.StatusBlocked:
		return color.New(color.FgRed).Sprintf("[%s]", s)
	case story.StatusSuperseded, story.StatusDeprecated:
		return color.New(color.FgHiBlack).Sprintf("[%s]", s)
	default:
		return color.New(color.FgWhite).Sprintf("[%s]", s)
	}
}

// severityLabel renders an advisory severity marker.
func severityLabel(sev story.AdvisorySeverity) string {
	switch sev {
	case story.SeverityCritical:
		return color.New(color.FgRed).Sprint("CRITICAL")
	case story.SeverityWarning:
		return color.New(color.FgYellow).Sprint("WARNING")
	default:
		return color.New(color.FgCyan).Sprint("INFO")
	}
}
