package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/agentic"
	"github.com/agentic-project/agentic/pkg/color"
	"github.com/agentic-project/agentic/pkg/model"
)

var (
	decideActor string
	decideAll   bool
)

var approveCmd = &cobra.Command{
	Use:   "approve [relpath]",
	Short: "Approve a staged artifact for apply",
	Long: `Approve a staged artifact. The decision pins the artifact version and the
current live file state; re-staging the path afterwards resets it to
pending. Use --all to approve every pending artifact.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDecision(agentic.Approve, args)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject [relpath]",
	Short: "Reject a staged artifact",
	Long: `Reject a staged artifact so apply skips it. Use --all to reject every
pending artifact.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDecision(agentic.Reject, args)
	},
}

func runDecision(decision model.ApprovalState, args []string) {
	client := requireClient()
	defer client.Close()
	sessionID := resolveSession(client)
	actor := actorOr(client, decideActor)

	if decideAll {
		decs, err := client.DecideSession(sessionID, decision, actor)
		if err != nil {
			fmtErr("%s: %v", decision, err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(decs)
			return
		}
		for _, dec := range decs {
			fmt.Printf("%s %s\n", decisionVerb(decision), color.Path(dec.Path))
		}
		if len(decs) == 0 {
			fmt.Println("Nothing pending")
		}
		return
	}

	if len(args) == 0 {
		fmtErr("relpath required (or --all)")
		os.Exit(1)
	}
	dec, err := client.Decide(sessionID, args[0], decision, actor)
	if err != nil {
		fmtErr("%s: %v", decision, err)
		os.Exit(1)
	}
	if jsonOutput {
		outputJSON(dec)
		return
	}
	fmt.Printf("%s %s (v%d)\n", decisionVerb(decision), color.Path(dec.Path), dec.ArtifactVersion)
}

func decisionVerb(decision model.ApprovalState) string {
	if decision == model.ApprovalApproved {
		return "Approved"
	}
	return "Rejected"
}

func init() {
	for _, cmd := range []*cobra.Command{approveCmd, rejectCmd} {
		cmd.Flags().StringVar(&decideActor, "actor", "", "actor recorded in the audit log")
		cmd.Flags().BoolVar(&decideAll, "all", false, "decide every pending artifact")
		rootCmd.AddCommand(cmd)
	}
}
