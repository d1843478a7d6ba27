// Package cli implements the agentic command line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
)

var (
	jsonOutput  bool
	noColor     bool
	sessionFlag string

	rootCmd = &cobra.Command{
		Use:   "agentic",
		Short: "Agentic - sandboxed preview and apply for generated code",
		Long: `Agentic stages AI-generated file content into a per-session sandbox,
shows how it differs from the live project tree, and applies it only after
explicit per-file approval. Every stage, decision, and apply is recorded in
a hash-chained audit log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			color.Init(noColor)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "", "session ID (defaults to the latest open session)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// outputJSON prints v as indented JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
