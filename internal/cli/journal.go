package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/ports/secondary"
	"github.com/example/sprintq/internal/wire"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the sprint mutation journal",
}

var (
	journalStory  string
	journalAction string
	journalLimit  int
)

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		journal := wire.Journal()
		if journal == nil {
			return fmt.Errorf("journaling is disabled in this workspace")
		}
		entries, err := journal.List(cmdContext(), secondary.JournalFilters{
			StoryID: journalStory,
			Action:  journalAction,
			Limit:   journalLimit,
		})
		if err != nil {
			return err
		}
		for _, e := range entries {
			actor := e.ActorID
			if actor == "" {
				actor = "-"
			}
			switch e.Action {
			case "create":
				fmt.Printf("%s  %-10s %-8s create %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), actor, e.StoryID, e.NewValue)
			default:
				fmt.Printf("%s  %-10s %-8s %s %s: %s -> %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), actor, e.StoryID, e.Action, e.FieldName, e.OldValue, e.NewValue)
			}
		}
		return nil
	},
}

var journalPruneDays int

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete journal entries older than --days",
	RunE: func(cmd *cobra.Command, args []string) error {
		journal := wire.Journal()
		if journal == nil {
			return fmt.Errorf("journaling is disabled in this workspace")
		}
		n, err := journal.PruneOlderThan(cmdContext(), journalPruneDays)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Pruned %d entries older than %d days\n", n, journalPruneDays)
		return nil
	},
}

func init() {
	journalListCmd.Flags().StringVar(&journalStory, "story", "", "Filter by story id")
	journalListCmd.Flags().StringVar(&journalAction, "action", "", "Filter by action (create|update|reconcile)")
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 50, "Maximum entries to show")
	journalPruneCmd.Flags().IntVar(&journalPruneDays, "days", 90, "Retention window in days")
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalPruneCmd)
}

// JournalCmd returns the journal command
func JournalCmd() *cobra.Command { return journalCmd }
