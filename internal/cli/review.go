package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
	"github.com/agentic-project/agentic/pkg/model"
)

var reviewCmd = &cobra.Command{
	Use:   "review [relpath]",
	Short: "Compare staged content against the live tree",
	Long: `Compare staged artifacts against the live project tree. Each artifact is
classified as new (no live file), identical, or diverged; diverged artifacts
include a line diff.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()
		sessionID := resolveSession(client)

		var reports []*model.ConflictReport
		if len(args) > 0 {
			report, err := client.ReviewPath(sessionID, args[0])
			if err != nil {
				fmtErr("review: %v", err)
				os.Exit(1)
			}
			reports = append(reports, report)
		} else {
			var err error
			reports, err = client.Review(sessionID)
			if err != nil {
				fmtErr("review: %v", err)
				os.Exit(1)
			}
		}

		if jsonOutput {
			outputJSON(reports)
			return
		}

		if len(reports) == 0 {
			fmt.Println("Nothing staged")
			return
		}
		for _, report := range reports {
			fmt.Printf("%s  %s\n", conflictLabel(report.Class), color.Path(report.Path))
			if report.Class == model.ConflictDiverged && report.Diff != "" {
				printDiff(report.Diff)
			}
		}
	},
}

func conflictLabel(class model.ConflictClass) string {
	switch class {
	case model.ConflictNew:
		return color.Info("new      ")
	case model.ConflictIdentical:
		return color.Dim("identical")
	default:
		return color.Warning("diverged ")
	}
}

func printDiff(diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			fmt.Println("    " + color.Success(line))
		case strings.HasPrefix(line, "-"):
			fmt.Println("    " + color.Error(line))
		default:
			fmt.Println("    " + line)
		}
	}
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
