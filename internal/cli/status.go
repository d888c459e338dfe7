package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the sprint queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := wire.QueueService().SprintStatus(cmdContext())
			if err != nil {
				return err
			}

			fmt.Printf("Sprint %s [%s]", status.Sprint.ID, status.Sprint.Status)
			if status.Sprint.Branch != "" {
				fmt.Printf(" on %s", status.Sprint.Branch)
			}
			fmt.Println()
			fmt.Printf("%d stories\n", status.Total)
			fmt.Println()

			order := []story.Status{
				story.StatusUnassigned,
				story.StatusInProgress,
				story.StatusBlocked,
				story.StatusCompleted,
				story.StatusSuperseded,
				story.StatusDeprecated,
			}
			for _, st := range order {
				if n := status.ByStatus[st]; n > 0 {
					fmt.Printf("  %-14s %s %d\n", st, statusLabel(st), n)
				}
			}

			fmt.Println()
			if len(status.Ready) == 0 {
				fmt.Println("Ready: (none)")
			} else {
				fmt.Printf("Ready: %s\n", strings.Join(status.Ready, ", "))
			}
			return nil
		},
	}
}
