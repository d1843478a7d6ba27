package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
)

var discardActor string

var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Discard the session without applying",
	Long: `Discard the session. Nothing touches the live tree; staged content and
the audit trail stay on disk, but the session accepts no further
operations.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()
		sessionID := resolveSession(client)

		if err := client.Discard(actorOr(client, discardActor), sessionID); err != nil {
			fmtErr("discard: %v", err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(map[string]any{"session_id": sessionID, "status": "discarded"})
			return
		}
		fmt.Printf("Discarded session %s\n", color.SessionID(sessionID.String()))
	},
}

func init() {
	discardCmd.Flags().StringVar(&discardActor, "actor", "", "actor recorded in the audit log")
	rootCmd.AddCommand(discardCmd)
}
