package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
)

var (
	stageActor  string
	stageOrigin string
	stageFrom   string
)

var stageCmd = &cobra.Command{
	Use:   "stage <relpath>",
	Short: "Stage file content into the session sandbox",
	Long: `Stage content for a workspace-relative path into the session sandbox.
Content is read from --from, or from stdin when --from is omitted. Staging
never touches the live tree; re-staging a path records a new version and
resets its approval to pending.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()
		sessionID := resolveSession(client)

		var content []byte
		var err error
		if stageFrom != "" {
			content, err = os.ReadFile(stageFrom)
		} else {
			content, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			fmtErr("read content: %v", err)
			os.Exit(1)
		}

		artifact, err := client.Stage(actorOr(client, stageActor), sessionID, args[0], content, stageOrigin)
		if err != nil {
			fmtErr("stage: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(artifact)
			return
		}
		fmt.Printf("Staged %s (v%d, %s)\n", color.Path(artifact.Path), artifact.Version, artifact.ContentHash.Short())
	},
}

var unstageCmd = &cobra.Command{
	Use:   "unstage <relpath>",
	Short: "Remove a staged path from the session sandbox",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()
		sessionID := resolveSession(client)

		if err := client.Unstage(actorOr(client, stageActor), sessionID, args[0]); err != nil {
			fmtErr("unstage: %v", err)
			os.Exit(1)
		}
		if !jsonOutput {
			fmt.Printf("Unstaged %s\n", color.Path(args[0]))
		}
	},
}

func init() {
	stageCmd.Flags().StringVar(&stageActor, "actor", "", "actor recorded in the audit log")
	stageCmd.Flags().StringVar(&stageOrigin, "origin", "manual", "origin label for the staged content")
	stageCmd.Flags().StringVar(&stageFrom, "from", "", "read content from this file instead of stdin")
	unstageCmd.Flags().StringVar(&stageActor, "actor", "", "actor recorded in the audit log")
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(unstageCmd)
}
