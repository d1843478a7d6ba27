// Package approval tracks human review decisions for staged artifacts.
//
// The gate is pull-based: it has no notion of waiting. An artifact stays
// Pending until the operator records a decision, and apply simply skips
// anything not Approved. Decisions are append-only; a later decision
// supersedes but never erases the prior record. Re-staging a path after a
// decision resets it to Pending.
package approval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/conflict"
	"github.com/agentic-project/agentic/internal/session"
	"github.com/agentic-project/agentic/internal/staging"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/fsutil"
	"github.com/agentic-project/agentic/pkg/model"
	"github.com/agentic-project/agentic/pkg/pathutil"
)

// Gate records and reports approval state.
type Gate struct {
	ws       *workspace.Workspace
	sessions *session.Manager
	store    *staging.Store
	detector *conflict.Detector
	audit    *audit.FileAppender
}

// NewGate creates a new approval gate.
func NewGate(ws *workspace.Workspace, sessions *session.Manager, store *staging.Store, detector *conflict.Detector, appender *audit.FileAppender) *Gate {
	return &Gate{ws: ws, sessions: sessions, store: store, detector: detector, audit: appender}
}

// Decide records an approve/reject decision for one artifact. The decision
// pins the artifact version and the live file's hash at decision time; apply
// honors exactly that baseline.
func (g *Gate) Decide(sessionID model.SessionID, relPath string, decision model.ApprovalState, actor string) (*model.ApprovalDecision, error) {
	return g.decide(sessionID, relPath, decision, actor, model.ScopeArtifact)
}

// DecideSession records the same decision for every currently Pending
// artifact in the session.
func (g *Gate) DecideSession(sessionID model.SessionID, decision model.ApprovalState, actor string) ([]*model.ApprovalDecision, error) {
	states, err := g.Status(sessionID)
	if err != nil {
		return nil, err
	}

	artifacts, err := g.store.List(sessionID)
	if err != nil {
		return nil, err
	}

	var decisions []*model.ApprovalDecision
	for _, artifact := range artifacts {
		if states[artifact.Path] != model.ApprovalPending {
			continue
		}
		d, err := g.decide(sessionID, artifact.Path, decision, actor, model.ScopeSession)
		if err != nil {
			return decisions, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// Status returns the approval state of every staged artifact. An artifact
// staged after its last decision reports Pending.
func (g *Gate) Status(sessionID model.SessionID) (map[string]model.ApprovalState, error) {
	artifacts, err := g.store.List(sessionID)
	if err != nil {
		return nil, err
	}
	effective, err := g.Effective(sessionID)
	if err != nil {
		return nil, err
	}

	states := make(map[string]model.ApprovalState, len(artifacts))
	for _, artifact := range artifacts {
		states[artifact.Path] = model.ApprovalPending
		if d, ok := effective[artifact.Path]; ok && d.ArtifactVersion == artifact.Version {
			states[artifact.Path] = d.Decision
		}
	}
	return states, nil
}

// Effective returns the latest decision per path. Decisions for superseded
// artifact versions are included; Status filters them out.
func (g *Gate) Effective(sessionID model.SessionID) (map[string]*model.ApprovalDecision, error) {
	decisions, err := g.readDecisions(sessionID)
	if err != nil {
		return nil, err
	}
	effective := make(map[string]*model.ApprovalDecision, len(decisions))
	for _, d := range decisions {
		effective[d.Path] = d
	}
	return effective, nil
}

// Decisions returns the full append-only decision history.
func (g *Gate) Decisions(sessionID model.SessionID) ([]*model.ApprovalDecision, error) {
	return g.readDecisions(sessionID)
}

func (g *Gate) decide(sessionID model.SessionID, relPath string, decision model.ApprovalState, actor string, scope model.DecisionScope) (*model.ApprovalDecision, error) {
	if decision != model.ApprovalApproved && decision != model.ApprovalRejected {
		return nil, fmt.Errorf("invalid decision: %s", decision)
	}
	if err := pathutil.ValidateName(actor); err != nil {
		return nil, err
	}
	if _, err := g.sessions.RequireOpen(sessionID); err != nil {
		return nil, err
	}

	artifact, err := g.store.Get(sessionID, relPath)
	if err != nil {
		return nil, err
	}

	// Pin the live baseline the human reviewed against
	liveHash, _, err := g.detector.LiveHash(artifact.Path)
	if err != nil {
		return nil, err
	}

	record := &model.ApprovalDecision{
		Path:            artifact.Path,
		Decision:        decision,
		Actor:           actor,
		DecidedAt:       time.Now().UTC(),
		Scope:           scope,
		ArtifactVersion: artifact.Version,
		ArtifactHash:    artifact.ContentHash,
		BaselineHash:    liveHash,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal decision: %w", err)
	}
	if err := fsutil.AppendLineSync(g.decisionsPath(sessionID), line, 0644); err != nil {
		return nil, fmt.Errorf("append decision: %w", err)
	}

	if _, err := g.audit.Append(actor, model.EventDecision, sessionID, artifact.Path, map[string]any{
		"decision": string(decision),
		"version":  artifact.Version,
		"hash":     string(artifact.ContentHash),
		"scope":    string(scope),
	}); err != nil {
		return nil, fmt.Errorf("audit decision: %w", err)
	}

	return record, nil
}

func (g *Gate) decisionsPath(sessionID model.SessionID) string {
	return filepath.Join(g.ws.SessionDir(sessionID), "decisions.jsonl")
}

func (g *Gate) readDecisions(sessionID model.SessionID) ([]*model.ApprovalDecision, error) {
	file, err := os.Open(g.decisionsPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open decisions: %w", err)
	}
	defer file.Close()

	var decisions []*model.ApprovalDecision
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var d model.ApprovalDecision
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			return nil, errclass.ErrManifestCorrupt.WithMessagef("parse decision line: %v", err)
		}
		decisions = append(decisions, &d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan decisions: %w", err)
	}
	return decisions, nil
}
