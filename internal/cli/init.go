package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/agentic"
	"github.com/agentic-project/agentic/pkg/color"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize an agentic workspace",
	Long: `Initialize an agentic workspace in the given directory (default: current
directory). Creates the .agentic control directory with the preview area,
session store, audit log, and default configuration.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		client, err := agentic.Init(path)
		if err != nil {
			fmtErr("init: %v", err)
			os.Exit(1)
		}
		defer client.Close()

		if jsonOutput {
			outputJSON(map[string]string{
				"root":         client.Root(),
				"workspace_id": client.WorkspaceID(),
			})
			return
		}
		fmt.Printf("Initialized agentic workspace at %s\n", color.Path(client.Root()))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
