package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/internal/verify"
	"github.com/agentic-project/agentic/pkg/color"
)

var verifyAll bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit chain and staged content integrity",
	Long: `Verify the hash-chained audit log and the session's staged content: every
manifest version must have an object stored under its recorded hash, and
the preview mirror must match the latest staged content. Use --all to check
every session.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		var report *verify.Report
		var err error
		if verifyAll {
			report, err = client.Verify()
		} else {
			report, err = client.VerifySession(resolveSession(client))
		}
		if err != nil {
			fmtErr("verify: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(report)
		} else {
			for _, check := range report.Checks {
				if check.Status == verify.StatusOK {
					continue
				}
				target := check.Name
				if check.Path != "" {
					target += " " + check.Path
				}
				fmt.Printf("%s  %s: %s\n", color.Error(string(check.Status)), target, check.Detail)
			}
			if report.OK() {
				fmt.Printf("%s (%d checks)\n", color.Success("OK"), report.Passed)
			} else {
				fmt.Printf("%d of %d checks failed\n", report.Failed, report.Passed+report.Failed)
			}
		}
		if !report.OK() {
			os.Exit(1)
		}
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyAll, "all", false, "verify every session")
	rootCmd.AddCommand(verifyCmd)
}
