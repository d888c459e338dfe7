package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/ports/primary"
	"github.com/example/sprintq/internal/wire"
)

var (
	reportPhase     string
	reportStatus    string
	reportTotal     int
	reportPassed    int
	reportFailed    int
	reportTestFiles []string
	reportFailures  []string
)

var reportCmd = &cobra.Command{
	Use:   "report <story-id>",
	Short: "Report the outcome of an externally executed phase",
	Long: `Report a phase outcome produced by the execution driver. The testing
phase accepts a structured test run summary; completing the testing phase of
a remediation story triggers reconciliation automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := primary.ReportPhaseRequest{
			StoryID: args[0],
			Phase:   story.Phase(reportPhase),
			Status:  story.Status(reportStatus),
		}
		if req.Phase == story.PhaseTesting && reportTotal > 0 {
			req.Summary = &story.TestRunSummary{
				Total:         reportTotal,
				Passed:        reportPassed,
				Failed:        reportFailed,
				PassRate:      float64(reportPassed) / float64(reportTotal),
				TestFilePaths: reportTestFiles,
				Failures:      reportFailures,
			}
		}
		resp, err := wire.QueueService().ReportPhase(cmdContext(), req)
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s %s phase recorded as %s\n", resp.StoryID, resp.Phase, resp.Status)
		if resp.Reconciliation != nil {
			fmt.Printf("Reconciliation: %s\n", resp.Reconciliation.Mode)
			fmt.Printf("  %s\n", resp.Reconciliation.Message)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportPhase, "phase", "", "Phase the driver executed (discovery|implementation|testing)")
	reportCmd.Flags().StringVar(&reportStatus, "status", "", "Outcome status for the phase")
	reportCmd.Flags().IntVar(&reportTotal, "total", 0, "Total test count (testing phase)")
	reportCmd.Flags().IntVar(&reportPassed, "passed", 0, "Passing test count (testing phase)")
	reportCmd.Flags().IntVar(&reportFailed, "failed", 0, "Failing test count (testing phase)")
	reportCmd.Flags().StringArrayVar(&reportTestFiles, "test-file", nil, "Test file exercised (repeatable)")
	reportCmd.Flags().StringArrayVar(&reportFailures, "failure", nil, "Failing test identifier (repeatable)")
	_ = reportCmd.MarkFlagRequired("phase")
	_ = reportCmd.MarkFlagRequired("status")
}

// ReportCmd returns the report command
func ReportCmd() *cobra.Command { return reportCmd }
