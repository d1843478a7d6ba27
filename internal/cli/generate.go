package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
)

var (
	generateActor  string
	generateInputs []string
)

var generateCmd = &cobra.Command{
	Use:   "generate <task>",
	Short: "Run a task template and stage its output",
	Long: `Render a task template from the configured task directories and stage
every produced file into the session sandbox. Inputs are passed as repeated
--input key=value flags.

Use 'agentic generate --list' to see the available tasks.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		registry, err := client.TaskRegistry()
		if err != nil {
			fmtErr("load task templates: %v", err)
			os.Exit(1)
		}

		if listTasks, _ := cmd.Flags().GetBool("list"); listTasks {
			names := registry.Names()
			if jsonOutput {
				outputJSON(names)
				return
			}
			if len(names) == 0 {
				fmt.Println("No task templates")
				return
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return
		}

		if len(args) == 0 {
			fmtErr("task name required (or --list)")
			os.Exit(1)
		}

		gen, err := registry.Lookup(args[0])
		if err != nil {
			fmtErr("%v", err)
			os.Exit(1)
		}

		inputs := make(map[string]string, len(generateInputs))
		for _, kv := range generateInputs {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				fmtErr("invalid --input %q (want key=value)", kv)
				os.Exit(1)
			}
			inputs[key] = value
		}

		sessionID := resolveSession(client)
		staged, err := client.Generate(context.Background(), actorOr(client, generateActor), sessionID, gen, inputs)
		if err != nil {
			fmtErr("generate: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(staged)
			return
		}
		for _, artifact := range staged {
			fmt.Printf("Staged %s (v%d)\n", color.Path(artifact.Path), artifact.Version)
		}
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateActor, "actor", "", "actor recorded in the audit log")
	generateCmd.Flags().StringArrayVar(&generateInputs, "input", nil, "task input as key=value (can be repeated)")
	generateCmd.Flags().Bool("list", false, "list available task templates")
	rootCmd.AddCommand(generateCmd)
}
