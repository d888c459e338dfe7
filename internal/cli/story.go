package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/wire"
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Inspect story records",
}

var storyListStatus string

var storyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stories in declared sprint order",
	RunE: func(cmd *cobra.Command, args []string) error {
		stories, err := wire.QueueService().ListStories(cmdContext())
		if err != nil {
			return err
		}
		for _, rec := range stories {
			if storyListStatus != "" && string(rec.Status) != storyListStatus {
				continue
			}
			fmt.Printf("%-8s %s %s (%s)\n", rec.ID, statusLabel(rec.Status), rec.Title, rec.Type)
		}
		return nil
	},
}

var storyShowCmd = &cobra.Command{
	Use:   "show <story-id>",
	Short: "Show one story in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := wire.QueueService().GetStory(cmdContext(), args[0])
		if err != nil {
			return err
		}
		printStory(rec)
		return nil
	},
}

func printStory(rec *story.Record) {
	fmt.Printf("%s %s %s\n", rec.ID, statusLabel(rec.Status), rec.Title)
	fmt.Printf("  Type: %s\n", rec.Type)
	if rec.File != "" {
		fmt.Printf("  File: %s\n", rec.File)
	}
	if rec.Parent != "" {
		fmt.Printf("  Parent: %s\n", rec.Parent)
	}
	if len(rec.Children) > 0 {
		fmt.Printf("  Children: %s\n", strings.Join(rec.Children, ", "))
	}
	if len(rec.DependsOn) > 0 {
		fmt.Printf("  Depends on: %s\n", strings.Join(rec.DependsOn, ", "))
	}
	if len(rec.PhaseStatus) > 0 {
		fmt.Println("  Phases:")
		for _, phase := range []story.Phase{story.PhaseDiscovery, story.PhaseImplementation, story.PhaseTesting} {
			if st, ok := rec.PhaseStatus[phase]; ok {
				fmt.Printf("    %-16s %s\n", phase, st)
			}
		}
	}
	if len(rec.AcceptanceCriteria) > 0 {
		fmt.Println("  Acceptance criteria:")
		for _, ac := range rec.AcceptanceCriteria {
			box := "[ ]"
			if ac.Checked {
				box = "[x]"
			}
			fmt.Printf("    %s %s %s\n", box, ac.Priority, ac.Text)
		}
	}
	if len(rec.Advisories) > 0 {
		fmt.Println("  Advisories:")
		for _, adv := range rec.Advisories {
			src := ""
			if adv.Source != "" {
				src = fmt.Sprintf(" (from %s)", adv.Source)
			}
			fmt.Printf("    %s %s: %s%s\n", severityLabel(adv.Severity), adv.Category, adv.Message, src)
		}
	}
	if m := rec.Metadata; m != nil {
		if rc := m.Reconciliation; rc != nil && rc.Status != story.ReconciliationNone {
			fmt.Printf("  Reconciliation: %s", rc.Status)
			if rc.SourceRemediationID != "" {
				fmt.Printf(" from %s (overlap %.2f)", rc.SourceRemediationID, rc.TestOverlapRatio)
			}
			if rc.Reason != "" {
				fmt.Printf(": %s", rc.Reason)
			}
			fmt.Println()
		}
		if tf := m.TestFailure; tf != nil {
			fmt.Printf("  Remediates: %s (%d/%d failing)\n", tf.OriginalStoryID, tf.Failed, tf.Total)
		}
		if v := m.Validation; v != nil && len(v.TestFiles) > 0 {
			fmt.Printf("  Test files: %s\n", strings.Join(v.TestFiles, ", "))
		}
	}
}

func init() {
	storyListCmd.Flags().StringVar(&storyListStatus, "status", "", "Only show stories with this status")
	storyCmd.AddCommand(storyListCmd)
	storyCmd.AddCommand(storyShowCmd)
}

// StoryCmd returns the story command
func StoryCmd() *cobra.Command { return storyCmd }
