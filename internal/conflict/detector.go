// Package conflict classifies staged artifacts against the live project tree.
//
// Classification only: New (no live file), Identical (hashes match), or
// Diverged (live file exists and differs). No merge is ever attempted.
package conflict

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/agentic-project/agentic/internal/integrity"
	"github.com/agentic-project/agentic/internal/staging"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/model"
	"github.com/agentic-project/agentic/pkg/pathutil"
)

// Detector compares staged artifacts to the live tree.
type Detector struct {
	ws    *workspace.Workspace
	store *staging.Store
}

// NewDetector creates a new conflict detector.
func NewDetector(ws *workspace.Workspace, store *staging.Store) *Detector {
	return &Detector{ws: ws, store: store}
}

// Detect classifies one staged artifact against the corresponding live file.
// For Diverged artifacts the report carries a line diff from the live content
// to the staged content, for the reviewer's benefit.
func (d *Detector) Detect(sessionID model.SessionID, relPath string) (*model.ConflictReport, error) {
	artifact, err := d.store.Get(sessionID, relPath)
	if err != nil {
		return nil, err
	}
	return d.detectArtifact(sessionID, artifact)
}

// DetectAll classifies every staged artifact in the session, sorted by path.
func (d *Detector) DetectAll(sessionID model.SessionID) ([]*model.ConflictReport, error) {
	artifacts, err := d.store.List(sessionID)
	if err != nil {
		return nil, err
	}

	reports := make([]*model.ConflictReport, 0, len(artifacts))
	for _, artifact := range artifacts {
		report, err := d.detectArtifact(sessionID, artifact)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Path < reports[j].Path })
	return reports, nil
}

// LiveHash returns the current hash of the live file for relPath, and whether
// it exists. The Applier uses this for its re-apply conflict check.
func (d *Detector) LiveHash(relPath string) (model.HashValue, bool, error) {
	livePath, err := pathutil.SafeJoin(d.ws.Root, relPath)
	if err != nil {
		return "", false, err
	}
	return integrity.FileHash(livePath)
}

func (d *Detector) detectArtifact(sessionID model.SessionID, artifact *model.StagedArtifact) (*model.ConflictReport, error) {
	report := &model.ConflictReport{
		Path:       artifact.Path,
		StagedHash: artifact.ContentHash,
	}

	liveHash, exists, err := d.LiveHash(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("hash live file %s: %w", artifact.Path, err)
	}

	switch {
	case !exists:
		report.Class = model.ConflictNew
	case liveHash == artifact.ContentHash:
		report.Class = model.ConflictIdentical
		report.LiveHash = liveHash
	default:
		report.Class = model.ConflictDiverged
		report.LiveHash = liveHash
		diff, err := d.lineDiff(sessionID, artifact)
		if err != nil {
			return nil, err
		}
		report.Diff = diff
	}

	return report, nil
}

// lineDiff renders a +/- line diff from live content to staged content.
func (d *Detector) lineDiff(sessionID model.SessionID, artifact *model.StagedArtifact) (string, error) {
	staged, err := d.store.ReadVersion(sessionID, artifact)
	if err != nil {
		return "", err
	}

	livePath, err := pathutil.SafeJoin(d.ws.Root, artifact.Path)
	if err != nil {
		return "", err
	}
	live, err := readFileIfExists(livePath)
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	srcRunes, dstRunes, lines := dmp.DiffLinesToRunes(string(live), string(staged))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(srcRunes, dstRunes, false), lines)

	var b strings.Builder
	for _, df := range diffs {
		prefix := " "
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitKeepNonEmpty(df.Text) {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func readFileIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read live file: %w", err)
	}
	return data, nil
}

func splitKeepNonEmpty(text string) []string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}
