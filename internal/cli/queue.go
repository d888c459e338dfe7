package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/wire"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next eligible story",
	Long: `Show the next unassigned story whose dependencies are all resolved.
Repeated calls against unchanged state return the same story.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := wire.QueueService().NextStory(cmdContext())
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Println("No story is ready.")
			return nil
		}
		fmt.Printf("%s %s %s (%s)\n", rec.ID, statusLabel(rec.Status), rec.Title, rec.Type)
		return nil
	},
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List all eligible stories in scheduling order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ready, err := wire.QueueService().ListReady(cmdContext())
		if err != nil {
			return err
		}
		if len(ready) == 0 {
			fmt.Println("No story is ready.")
			return nil
		}
		for _, rec := range ready {
			fmt.Printf("%s %s %s (%s)\n", rec.ID, statusLabel(rec.Status), rec.Title, rec.Type)
		}
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start <story-id>",
	Short: "Move a ready story to in_progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.QueueService().StartStory(cmdContext(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Started %s\n", args[0])
		return nil
	},
}

// NextCmd returns the next command
func NextCmd() *cobra.Command { return nextCmd }

// ReadyCmd returns the ready command
func ReadyCmd() *cobra.Command { return readyCmd }

// StartCmd returns the start command
func StartCmd() *cobra.Command { return startCmd }
