package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
	"github.com/agentic-project/agentic/pkg/model"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Inspect the apply lock",
}

var lockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the apply lock state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		state, rec, err := client.LockStatus()
		if err != nil {
			fmtErr("lock status: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(map[string]any{"state": state, "lock": rec})
			return
		}
		switch state {
		case model.LockStateFree:
			fmt.Println("Lock free")
		case model.LockStateExpired:
			fmt.Printf("Lock expired (held by session %s, token %d)\n",
				color.SessionID(rec.SessionID.ShortID()), rec.FencingToken)
		default:
			fmt.Printf("Lock held by session %s until %s (token %d)\n",
				color.SessionID(rec.SessionID.ShortID()),
				rec.ExpiresAt.Format("15:04:05"), rec.FencingToken)
		}
	},
}

var lockStealCmd = &cobra.Command{
	Use:   "steal",
	Short: "Break an expired apply lock",
	Long: `Break an expired apply lock on behalf of the session. Stealing bumps the
fencing token so a stale holder can no longer write.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()
		sessionID := resolveSession(client)

		rec, err := client.StealLock(sessionID)
		if err != nil {
			fmtErr("steal lock: %v", err)
			os.Exit(1)
		}
		// The bumped fencing token already fences the stale holder out;
		// release so the next apply can acquire normally.
		if err := client.ReleaseLock(rec.HolderNonce); err != nil {
			fmtErr("release stolen lock: %v", err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(rec)
			return
		}
		fmt.Printf("Stole lock (token %d)\n", rec.FencingToken)
	},
}

func init() {
	lockCmd.AddCommand(lockStatusCmd)
	lockCmd.AddCommand(lockStealCmd)
	rootCmd.AddCommand(lockCmd)
}
