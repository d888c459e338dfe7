package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/adapters/queuefile"
	"github.com/example/sprintq/internal/wire"
)

// ArchiveCmd returns the archive command
func ArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Move the sprint document into the archive directory",
		Long: `Move the active sprint document aside so a new sprint can be
initialized. Nothing archives automatically; this is always an explicit
operator action.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wire.Config()
			store := queuefile.New(cfg.SprintFile, nil)
			if err := store.Archive(); err != nil {
				return err
			}
			fmt.Printf("✓ Archived %s\n", cfg.SprintFile)
			return nil
		},
	}
}
