package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/agentic"
	"github.com/agentic-project/agentic/pkg/color"
	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/model"
	"github.com/agentic-project/agentic/pkg/progress"
)

var (
	applyActor    string
	applyFailFast bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply approved artifacts to the live tree",
	Long: `Apply every approved artifact of the session to the live project tree,
in path order, each write atomic. Artifacts whose live file changed since
the approval are skipped, never overwritten. A workspace-wide lock makes a
second concurrent apply fail fast.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()
		sessionID := resolveSession(client)

		states, err := client.ApprovalStatus(sessionID)
		if err != nil {
			fmtErr("apply: %v", err)
			os.Exit(1)
		}
		if !anyApproved(states) {
			fmtErr("%v", errclass.ErrNotApproved.WithMessage("no approved artifacts (run 'agentic approve' first)"))
			os.Exit(1)
		}

		bar := progress.NewTerminal("apply", 0, !jsonOutput)
		report, err := client.Apply(context.Background(), actorOr(client, applyActor), sessionID, agentic.ApplyOptions{
			FailFast: applyFailFast,
			Progress: bar.Callback(),
		})
		bar.Done("")
		if err != nil {
			fmtErr("apply: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(report)
		} else {
			printApplyReport(report)
		}
		if report.Failed > 0 {
			os.Exit(1)
		}
	},
}

func anyApproved(states map[string]model.ApprovalState) bool {
	for _, state := range states {
		if state == model.ApprovalApproved {
			return true
		}
	}
	return false
}

func printApplyReport(report *model.ApplyReport) {
	for _, res := range report.Results {
		switch res.Outcome {
		case model.OutcomeApplied:
			fmt.Printf("  %s %s\n", color.Success("applied"), color.Path(res.Path))
		case model.OutcomeFailedIO:
			fmt.Printf("  %s  %s: %s\n", color.Error("failed"), color.Path(res.Path), res.Error)
		default:
			fmt.Printf("  %s %s (%s)\n", color.Dim("skipped"), color.Path(res.Path), res.Outcome)
		}
	}
	fmt.Printf("%d applied, %d skipped, %d failed\n", report.Applied, report.Skipped, report.Failed)
}

func init() {
	applyCmd.Flags().StringVar(&applyActor, "actor", "", "actor recorded in the audit log")
	applyCmd.Flags().BoolVar(&applyFailFast, "fail-fast", false, "stop at the first IO failure")
	rootCmd.AddCommand(applyCmd)
}
