package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/sprintq/internal/core/story"
	"github.com/example/sprintq/internal/core/validation"
	"github.com/example/sprintq/internal/ports/primary"
	"github.com/example/sprintq/internal/wire"
)

var (
	validateTotal     int
	validatePassed    int
	validateFailed    int
	validateTestFiles []string
	validateFailures  []string
)

var validateCmd = &cobra.Command{
	Use:   "validate <story-id>",
	Short: "Run the validation checks against a story",
	Long: `Run checks A through H against a story using the supplied test run
summary. Auto-fixable findings are repaired in place; blocking failures set
the story to blocked and spawn a remediation story.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := primary.SubmitValidationRequest{StoryID: args[0]}
		if validateTotal > 0 {
			req.Summary = &story.TestRunSummary{
				Total:         validateTotal,
				Passed:        validatePassed,
				Failed:        validateFailed,
				PassRate:      float64(validatePassed) / float64(validateTotal),
				TestFilePaths: validateTestFiles,
				Failures:      validateFailures,
			}
		}
		result, err := wire.ValidationService().SubmitValidation(cmdContext(), req)
		if err != nil {
			return err
		}
		printValidation(result)
		return nil
	},
}

func printValidation(result *validation.Result) {
	fmt.Printf("Validation of %s\n", result.StoryID)
	for _, check := range result.Checks {
		fmt.Printf("  %s %s  %s\n", checkMark(check), check.Check, check.Details)
	}
	if len(result.AppliedFixes) > 0 {
		fmt.Println("Applied fixes:")
		for _, fix := range result.AppliedFixes {
			fmt.Printf("  - %s\n", fix)
		}
	}
	if result.Verdict == validation.VerdictPass {
		fmt.Printf("Verdict: %s\n", color.New(color.FgHiGreen).Sprint(result.Verdict))
	} else {
		fmt.Printf("Verdict: %s (failed checks: %v)\n", color.New(color.FgRed).Sprint(result.Verdict), result.FailedChecks)
	}
}

func checkMark(check validation.CheckResult) string {
	switch check.Status {
	case validation.StatusPass:
		if check.AutoFixed {
			return color.New(color.FgYellow).Sprint("~")
		}
		return color.New(color.FgHiGreen).Sprint("✓")
	case validation.StatusSkip:
		return color.New(color.FgHiBlack).Sprint("-")
	default:
		if check.Blocking {
			return color.New(color.FgRed).Sprint("✗")
		}
		return color.New(color.FgYellow).Sprint("⚠")
	}
}

func init() {
	validateCmd.Flags().IntVar(&validateTotal, "total", 0, "Total test count")
	validateCmd.Flags().IntVar(&validatePassed, "passed", 0, "Passing test count")
	validateCmd.Flags().IntVar(&validateFailed, "failed", 0, "Failing test count")
	validateCmd.Flags().StringArrayVar(&validateTestFiles, "test-file", nil, "Test file exercised (repeatable)")
	validateCmd.Flags().StringArrayVar(&validateFailures, "failure", nil, "Failing test identifier (repeatable)")
}

// ValidateCmd returns the validate command
func ValidateCmd() *cobra.Command { return validateCmd }
