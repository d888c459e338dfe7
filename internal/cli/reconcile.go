package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/ports/primary"
	"github.com/example/sprintq/internal/wire"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <remediation-id>",
	Short: "Reconcile a blocked validation from a completed remediation",
	Long: `Compare the remediation story's test evidence against the blocked
validation-testing record it targets. High overlap propagates the pass,
partial overlap unblocks the target for retest, low overlap leaves it
blocked for manual intervention. Safe to re-run; an already reconciled
target reports a skipped outcome.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, err := wire.ReconciliationService().TriggerReconciliation(cmdContext(), args[0])
		if err != nil {
			return err
		}
		printOutcome(outcome)
		return nil
	},
}

var supersedeReason string

var supersedeCmd = &cobra.Command{
	Use:   "supersede <target-id>",
	Short: "Manually resolve a blocked validation",
	Long: `Mark a blocked validation-testing record as superseded. This is never
chosen automatically and requires an explicit --reason.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, err := wire.ReconciliationService().Supersede(cmdContext(), args[0], supersedeReason)
		if err != nil {
			return err
		}
		printOutcome(outcome)
		return nil
	},
}

func printOutcome(outcome *primary.ReconciliationOutcome) {
	fmt.Printf("Mode: %s\n", outcome.Mode)
	if outcome.OverlapRatio > 0 {
		fmt.Printf("Overlap: %.2f\n", outcome.OverlapRatio)
	}
	fmt.Println(outcome.Message)
}

func init() {
	supersedeCmd.Flags().StringVar(&supersedeReason, "reason", "", "Why the blocked validation no longer applies")
	_ = supersedeCmd.MarkFlagRequired("reason")
}

// ReconcileCmd returns the reconcile command
func ReconcileCmd() *cobra.Command { return reconcileCmd }

// SupersedeCmd returns the supersede command
func SupersedeCmd() *cobra.Command { return supersedeCmd }
