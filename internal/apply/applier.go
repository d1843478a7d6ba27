// Package apply performs the atomic transition of approved staged artifacts
// into the live project tree.
//
// Atomicity is per artifact, not per session: each approved artifact is
// written via temp-file + rename and audited individually, and one failure
// does not abort the batch unless fail-fast is configured. Approval is a
// commitment to specific content against a specific live baseline; if the
// live file changed after the decision, the artifact is skipped, never
// clobbered.
package apply

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentic-project/agentic/internal/approval"
	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/conflict"
	"github.com/agentic-project/agentic/internal/lock"
	"github.com/agentic-project/agentic/internal/session"
	"github.com/agentic-project/agentic/internal/staging"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/fsutil"
	"github.com/agentic-project/agentic/pkg/logging"
	"github.com/agentic-project/agentic/pkg/model"
	"github.com/agentic-project/agentic/pkg/pathutil"
	"github.com/agentic-project/agentic/pkg/progress"
)

// Options configures an apply run.
type Options struct {
	// FailFast stops at the first per-artifact IO failure instead of
	// continuing with the remaining artifacts.
	FailFast bool
	// Progress receives per-artifact progress updates.
	Progress progress.Callback
}

// Applier moves approved staged content into the live tree.
type Applier struct {
	ws       *workspace.Workspace
	sessions *session.Manager
	store    *staging.Store
	gate     *approval.Gate
	detector *conflict.Detector
	locks    *lock.Manager
	audit    *audit.FileAppender
}

// NewApplier creates a new applier.
func NewApplier(ws *workspace.Workspace, sessions *session.Manager, store *staging.Store, gate *approval.Gate, detector *conflict.Detector, locks *lock.Manager, appender *audit.FileAppender) *Applier {
	return &Applier{
		ws:       ws,
		sessions: sessions,
		store:    store,
		gate:     gate,
		detector: detector,
		locks:    locks,
		audit:    appender,
	}
}

// Apply applies every approved artifact of the session in lexicographic path
// order. The report is returned even when some artifacts failed; the caller
// decides whether partial success is acceptable.
func (a *Applier) Apply(ctx context.Context, actor string, sessionID model.SessionID, opts Options) (*model.ApplyReport, error) {
	if opts.Progress == nil {
		opts.Progress = progress.Noop
	}

	if _, err := a.sessions.RequireOpen(sessionID); err != nil {
		return nil, err
	}

	// Advisory lock held for the whole run; a second apply fails fast
	lockRec, err := a.locks.Acquire(sessionID, "apply")
	if err != nil {
		return nil, err
	}
	defer a.locks.Release(lockRec.HolderNonce)

	artifacts, err := a.store.List(sessionID)
	if err != nil {
		return nil, err
	}
	states, err := a.gate.Status(sessionID)
	if err != nil {
		return nil, err
	}
	decisions, err := a.gate.Effective(sessionID)
	if err != nil {
		return nil, err
	}

	report := &model.ApplyReport{
		SessionID: sessionID,
		StartedAt: time.Now().UTC(),
	}

	tracker := progress.New("apply", len(artifacts), opts.Progress)
	log := logging.WithFields(map[string]any{"session_id": sessionID.String()})

	for _, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := a.applyOne(actor, artifact, states[artifact.Path], decisions[artifact.Path], lockRec.FencingToken, sessionID)
		report.Add(result)
		tracker.Increment(artifact.Path)

		if result.Outcome == model.OutcomeFailedIO {
			log.ErrorErr("apply failed", fmt.Errorf("%s", result.Error), map[string]any{"path": artifact.Path})
			if opts.FailFast {
				break
			}
		}
	}
	tracker.Done("")

	// A fully settled session is closed; anything pending or failed keeps
	// it open for another round.
	if report.Failed == 0 && allSettled(artifacts, states) {
		if err := a.sessions.Close(actor, sessionID); err != nil {
			return report, fmt.Errorf("close session: %w", err)
		}
	}

	return report, nil
}

func (a *Applier) applyOne(actor string, artifact *model.StagedArtifact, state model.ApprovalState, decision *model.ApprovalDecision, fencingToken int64, sessionID model.SessionID) *model.ApplyResult {
	result := &model.ApplyResult{Path: artifact.Path, Hash: artifact.ContentHash}

	if state != model.ApprovalApproved || decision == nil {
		result.Outcome = model.OutcomeSkippedNotApproved
		a.auditSkip(result, actor, sessionID, artifact.Path, "not_approved", string(state))
		return result
	}

	// The decision binds exact content, not just a version number. A
	// manifest record whose hash drifted from the decided one never
	// applies without a fresh approval.
	if decision.ArtifactHash != artifact.ContentHash {
		result.Outcome = model.OutcomeSkippedNotApproved
		a.auditSkip(result, actor, sessionID, artifact.Path, "decision_mismatch", string(artifact.ContentHash))
		return result
	}

	// Staging validated against the sandbox root; apply re-validates
	// against the project root.
	target, err := pathutil.SafeJoin(a.ws.Root, artifact.Path)
	if err != nil {
		return a.fail(result, actor, sessionID, artifact.Path, err)
	}

	// Re-check divergence: the live file may have changed between review
	// and apply.
	liveHash, _, err := a.detector.LiveHash(artifact.Path)
	if err != nil {
		return a.fail(result, actor, sessionID, artifact.Path, err)
	}

	// A missing live file hashes to the empty value, which matches an
	// empty baseline recorded at decision time.
	if liveHash != decision.BaselineHash {
		if liveHash == artifact.ContentHash {
			// Already applied; never a duplicate mutation
			result.Outcome = model.OutcomeSkippedReapplyConflict
			a.auditSkip(result, actor, sessionID, artifact.Path, "already_applied", string(liveHash))
			return result
		}
		result.Outcome = model.OutcomeSkippedReapplyConflict
		a.auditSkip(result, actor, sessionID, artifact.Path, "reapply_conflict", string(liveHash))
		return result
	}

	content, err := a.store.ReadVersion(sessionID, artifact)
	if err != nil {
		return a.fail(result, actor, sessionID, artifact.Path, err)
	}

	// The lock must still be ours before the mutation
	if err := a.locks.ValidateFencing(fencingToken); err != nil {
		return a.fail(result, actor, sessionID, artifact.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return a.fail(result, actor, sessionID, artifact.Path, fmt.Errorf("create target dir: %w", err))
	}
	if err := fsutil.AtomicWrite(target, content, 0644); err != nil {
		return a.fail(result, actor, sessionID, artifact.Path, err)
	}

	result.Outcome = model.OutcomeApplied
	if _, err := a.audit.Append(actor, model.EventApplied, sessionID, artifact.Path, map[string]any{
		"hash":    string(artifact.ContentHash),
		"version": artifact.Version,
	}); err != nil {
		// The write landed but the audit append did not; surface as failure
		result.Outcome = model.OutcomeFailedIO
		result.Error = fmt.Sprintf("audit applied: %v", err)
	}
	return result
}

func (a *Applier) fail(result *model.ApplyResult, actor string, sessionID model.SessionID, path string, err error) *model.ApplyResult {
	result.Outcome = model.OutcomeFailedIO
	result.Error = err.Error()
	if _, aerr := a.audit.Append(actor, model.EventApplyFailed, sessionID, path, map[string]any{"error": err.Error()}); aerr != nil {
		result.Error = fmt.Sprintf("%s (audit apply_failed: %v)", result.Error, aerr)
	}
	return result
}

func (a *Applier) auditSkip(result *model.ApplyResult, actor string, sessionID model.SessionID, path, reason, detail string) {
	if _, err := a.audit.Append(actor, model.EventApplySkipped, sessionID, path, map[string]any{
		"reason": reason,
		"detail": detail,
	}); err != nil {
		// The skip happened but its record did not land
		result.Outcome = model.OutcomeFailedIO
		result.Error = fmt.Sprintf("audit apply_skipped: %v", err)
	}
}

// allSettled reports whether no artifact is still Pending.
func allSettled(artifacts []*model.StagedArtifact, states map[string]model.ApprovalState) bool {
	for _, artifact := range artifacts {
		if states[artifact.Path] == model.ApprovalPending {
			return false
		}
	}
	return true
}
