package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
)

var sessionActor string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage staging sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new [note]",
	Short: "Open a new staging session",
	Long: `Open a new staging session. All staged content, reviews, and decisions
are scoped to a session until it is applied or discarded.

The note may contain placeholders such as {date} or {user}.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		note := ""
		if len(args) > 0 {
			note = args[0]
		}

		rec, err := client.NewSession(actorOr(client, sessionActor), note)
		if err != nil {
			fmtErr("new session: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(rec)
			return
		}
		fmt.Printf("Opened session %s\n", color.SessionID(rec.SessionID.String()))
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		records, err := client.Sessions()
		if err != nil {
			fmtErr("list sessions: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(records)
			return
		}
		if len(records) == 0 {
			fmt.Println("No sessions")
			return
		}
		for _, rec := range records {
			line := fmt.Sprintf("%s  %-9s  %s",
				color.SessionID(rec.SessionID.String()),
				rec.Status,
				rec.CreatedAt.Format("2006-01-02 15:04:05"))
			if rec.Note != "" {
				line += "  " + rec.Note
			}
			fmt.Println(line)
		}
	},
}

func init() {
	sessionNewCmd.Flags().StringVar(&sessionActor, "actor", "", "actor recorded in the audit log")
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}
