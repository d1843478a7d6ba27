// Package generator produces proposed file content for a session. The core
// pipeline treats generation as an opaque source of bytes; this package
// defines the contract and a template-driven implementation that renders
// task templates from YAML definitions.
package generator

import (
	"context"

	"github.com/agentic-project/agentic/pkg/pathutil"
)

// ProposedFile is one generated artifact: a workspace-relative path and the
// full content to stage at that path.
type ProposedFile struct {
	Path    string
	Content []byte
}

// Generator produces proposed files from caller-supplied inputs.
type Generator interface {
	// Name identifies the generator in audit details and CLI output.
	Name() string
	// Generate produces the proposal set. Paths in the result must be
	// workspace-relative; staging validates them again before writing.
	Generate(ctx context.Context, inputs map[string]string) ([]ProposedFile, error)
}

// ValidateProposal checks every proposed path before staging so a bad
// generator fails as a unit instead of half-staging.
func ValidateProposal(files []ProposedFile) error {
	for _, f := range files {
		if err := pathutil.ValidateRelPath(f.Path); err != nil {
			return err
		}
	}
	return nil
}
