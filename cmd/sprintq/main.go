package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/cli"
	"github.com/example/sprintq/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "sprintq",
		Short:   "sprintq - sprint workflow queue engine",
		Version: version.String(),
		Long: `sprintq manages a sprint's story queue: scheduling, validation, and
reconciliation. An external driver executes the work; sprintq decides what
runs next and keeps the sprint document consistent.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.NextCmd())
	rootCmd.AddCommand(cli.ReadyCmd())
	rootCmd.AddCommand(cli.StartCmd())
	rootCmd.AddCommand(cli.ReportCmd())
	rootCmd.AddCommand(cli.ValidateCmd())
	rootCmd.AddCommand(cli.ReconcileCmd())
	rootCmd.AddCommand(cli.SupersedeCmd())
	rootCmd.AddCommand(cli.StoryCmd())
	rootCmd.AddCommand(cli.JournalCmd())
	rootCmd.AddCommand(cli.ArchiveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
