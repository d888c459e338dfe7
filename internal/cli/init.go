package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/adapters/queuefile"
	"github.com/example/sprintq/internal/config"
	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var sprintID string
	var branch string
	var actor string
	var planFile string
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a sprintq workspace in the current directory",
		Long: `Initialize a sprintq workspace: writes .sprintq/config.json, an empty
sprint document, and the sqlite journal schema (unless --no-journal).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			cfg := config.Default(cwd)
			cfg.Actor = actor
			if noJournal {
				cfg.JournalDB = ""
			}
			if err := config.SaveConfig(cwd, cfg); err != nil {
				return err
			}
			fmt.Printf("✓ Config written to %s/%s/config.json\n", cwd, config.Dir)

			sprint := story.Sprint{ID: sprintID, Status: "active", Branch: branch}
			var stories []*story.Record
			if planFile != "" {
				doc, err := readPlan(planFile)
				if err != nil {
					return err
				}
				if doc.Sprint.ID != "" {
					sprint = doc.Sprint
				}
				stories = doc.Stories
			}

			store := queuefile.New(cfg.SprintFile, nil)
			if err := store.Init(sprint, stories); err != nil {
				return fmt.Errorf("failed to create sprint document: %w", err)
			}
			fmt.Printf("✓ Sprint document created at %s\n", cfg.SprintFile)

			if cfg.JournalDB != "" {
				database, err := db.Open(cfg.JournalDB)
				if err != nil {
					return fmt.Errorf("failed to initialize journal: %w", err)
				}
				defer database.Close()
				fmt.Printf("✓ Journal initialized at %s\n", cfg.JournalDB)
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  sprintq status")
			fmt.Println("  sprintq next")
			return nil
		},
	}

	cmd.Flags().StringVar(&sprintID, "sprint-id", "sprint-1", "Sprint identifier")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch the sprint tracks")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor id recorded on journal entries")
	cmd.Flags().StringVar(&planFile, "plan", "", "Sprint plan JSON to seed the queue from")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Disable the sqlite mutation journal")

	return cmd
}

// readPlan parses a sprint plan document from disk.
func readPlan(path string) (*story.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var doc story.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return &doc, nil
}
