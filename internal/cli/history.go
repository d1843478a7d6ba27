package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
	"github.com/agentic-project/agentic/pkg/model"
)

var historyAll bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit log",
	Long: `Show audit records for the session, newest last. Use --all for the full
workspace log across sessions.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		var filter model.SessionID
		if !historyAll {
			filter = resolveSession(client)
		}

		records, err := client.History(filter)
		if err != nil {
			fmtErr("history: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(records)
			return
		}
		if len(records) == 0 {
			fmt.Println("No audit records")
			return
		}
		for _, rec := range records {
			line := fmt.Sprintf("%5d  %s  %-15s  %s",
				rec.Seq,
				rec.Timestamp.Format("2006-01-02 15:04:05"),
				rec.EventKind,
				color.SessionID(rec.SessionID.ShortID()))
			if rec.Path != "" {
				line += "  " + color.Path(rec.Path)
			}
			if rec.Actor != "" {
				line += "  [" + rec.Actor + "]"
			}
			fmt.Println(line)
		}
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "show records for all sessions")
	rootCmd.AddCommand(historyCmd)
}
