package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentic-project/agentic/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the workspace configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		cfg := client.Config()
		if jsonOutput {
			outputJSON(cfg)
			return
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmtErr("encode config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("# %s\n%s", config.Path(client.Root()), data)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
