package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-project/agentic/pkg/color"
	"github.com/agentic-project/agentic/pkg/model"
)

// statusEntry is one row of the status table.
type statusEntry struct {
	Path     string              `json:"path"`
	Version  int                 `json:"version"`
	Hash     model.HashValue     `json:"hash"`
	Size     int64               `json:"size"`
	Approval model.ApprovalState `json:"approval"`
	Conflict model.ConflictClass `json:"conflict"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session's staged artifacts and their review state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()
		sessionID := resolveSession(client)

		artifacts, err := client.Artifacts(sessionID)
		if err != nil {
			fmtErr("list artifacts: %v", err)
			os.Exit(1)
		}
		states, err := client.ApprovalStatus(sessionID)
		if err != nil {
			fmtErr("approval status: %v", err)
			os.Exit(1)
		}
		reports, err := client.Review(sessionID)
		if err != nil {
			fmtErr("review: %v", err)
			os.Exit(1)
		}
		conflicts := make(map[string]model.ConflictClass, len(reports))
		for _, rep := range reports {
			conflicts[rep.Path] = rep.Class
		}

		entries := make([]statusEntry, 0, len(artifacts))
		for _, artifact := range artifacts {
			entries = append(entries, statusEntry{
				Path:     artifact.Path,
				Version:  artifact.Version,
				Hash:     artifact.ContentHash,
				Size:     artifact.Size,
				Approval: states[artifact.Path],
				Conflict: conflicts[artifact.Path],
			})
		}

		if jsonOutput {
			outputJSON(map[string]any{
				"session_id": sessionID,
				"artifacts":  entries,
			})
			return
		}

		fmt.Printf("Session %s\n", color.SessionID(sessionID.String()))
		if len(entries) == 0 {
			fmt.Println("Nothing staged")
			return
		}
		for _, e := range entries {
			fmt.Printf("  %-9s  %-9s  v%-3d  %s  %s\n",
				approvalLabel(e.Approval), e.Conflict, e.Version, e.Hash.Short(), color.Path(e.Path))
		}
	},
}

func approvalLabel(state model.ApprovalState) string {
	switch state {
	case model.ApprovalApproved:
		return color.Success(string(state))
	case model.ApprovalRejected:
		return color.Error(string(state))
	default:
		return color.Warning(string(state))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
