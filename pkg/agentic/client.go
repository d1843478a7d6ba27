package agentic

import (
	"context"
	"fmt"
	"time"

	"github.com/agentic-project/agentic/internal/apply"
	"github.com/agentic-project/agentic/internal/approval"
	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/conflict"
	"github.com/agentic-project/agentic/internal/generator"
	"github.com/agentic-project/agentic/internal/lock"
	"github.com/agentic-project/agentic/internal/session"
	"github.com/agentic-project/agentic/internal/staging"
	"github.com/agentic-project/agentic/internal/verify"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/config"
	"github.com/agentic-project/agentic/pkg/logging"
	"github.com/agentic-project/agentic/pkg/model"
	"github.com/agentic-project/agentic/pkg/progress"
	"github.com/agentic-project/agentic/pkg/template"
	"github.com/agentic-project/agentic/pkg/webhook"
)

// Decision values accepted by Decide and DecideSession.
const (
	Approve = model.ApprovalApproved
	Reject  = model.ApprovalRejected
)

// ApplyOptions configures an Apply run.
type ApplyOptions struct {
	FailFast bool              // Stop at the first IO failure
	Progress progress.Callback // Optional per-artifact progress updates
}

// Client provides high-level pipeline operations on a workspace.
type Client struct {
	ws       *workspace.Workspace
	cfg      *config.Config
	audit    *audit.FileAppender
	sessions *session.Manager
	store    *staging.Store
	detector *conflict.Detector
	gate     *approval.Gate
	locks    *lock.Manager
	applier  *apply.Applier
	verifier *verify.Verifier
	hooks    *webhook.Client
}

// Init initializes a new workspace at path and returns a client over it.
func Init(path string) (*Client, error) {
	ws, err := workspace.Init(path)
	if err != nil {
		return nil, fmt.Errorf("agentic init: %w", err)
	}
	return newClient(ws)
}

// Open opens an existing workspace at or above path.
func Open(path string) (*Client, error) {
	ws, err := workspace.Discover(path)
	if err != nil {
		return nil, fmt.Errorf("agentic open: %w", err)
	}
	return newClient(ws)
}

// OpenOrInit opens the workspace at path, initializing it if absent.
func OpenOrInit(path string) (*Client, error) {
	if ws, err := workspace.Discover(path); err == nil {
		return newClient(ws)
	}
	return Init(path)
}

func newClient(ws *workspace.Workspace) (*Client, error) {
	cfg, err := config.Load(ws.Root)
	if err != nil {
		return nil, err
	}

	if cfg.Logging.Level != "" {
		logging.SetGlobal(logging.NewLogger(logging.Level(cfg.Logging.Level)))
	}

	appender := audit.NewFileAppender(ws.AuditLogPath())
	sessions := session.NewManager(ws, appender)
	store := staging.NewStore(ws, sessions, appender)
	detector := conflict.NewDetector(ws, store)
	gate := approval.NewGate(ws, sessions, store, detector, appender)
	locks := lock.NewManager(ws.Root, model.LockPolicy{LeaseTTL: cfg.LockLeaseTTL()})
	applier := apply.NewApplier(ws, sessions, store, gate, detector, locks, appender)
	verifier := verify.NewVerifier(ws, sessions, store, appender)

	c := &Client{
		ws:       ws,
		cfg:      cfg,
		audit:    appender,
		sessions: sessions,
		store:    store,
		detector: detector,
		gate:     gate,
		locks:    locks,
		applier:  applier,
		verifier: verifier,
	}
	if cfg.Webhooks != nil && cfg.Webhooks.Enabled {
		c.hooks = webhook.NewClient(cfg.Webhooks)
	}
	return c, nil
}

// Root returns the workspace root directory.
func (c *Client) Root() string { return c.ws.Root }

// WorkspaceID returns the stable workspace identifier.
func (c *Client) WorkspaceID() string { return c.ws.WorkspaceID }

// Config returns the loaded workspace configuration.
func (c *Client) Config() *config.Config { return c.cfg }

// Close releases background resources such as the webhook worker.
func (c *Client) Close() error {
	if c.hooks != nil {
		return c.hooks.Close()
	}
	return nil
}

// NewSession opens a new staging session. Placeholders in note such as
// {date} are expanded.
func (c *Client) NewSession(actor, note string) (*model.SessionRecord, error) {
	rec, err := c.sessions.Create(actor, template.ExpandNote(note))
	if err != nil {
		return nil, err
	}
	c.notify(webhook.EventSessionOpened, rec.SessionID, "", actor, nil)
	return rec, nil
}

// Session returns the record for a session ID.
func (c *Client) Session(id model.SessionID) (*model.SessionRecord, error) {
	return c.sessions.Get(id)
}

// Sessions lists all sessions, newest first.
func (c *Client) Sessions() ([]*model.SessionRecord, error) {
	return c.sessions.List()
}

// LatestSession returns the most recent open session, or nil when none is
// open.
func (c *Client) LatestSession() (*model.SessionRecord, error) {
	return c.sessions.Latest()
}

// Stage writes content into the session sandbox at relPath. Re-staging the
// same path records a new version and resets its approval to pending.
func (c *Client) Stage(actor string, sessionID model.SessionID, relPath string, content []byte, origin string) (*model.StagedArtifact, error) {
	artifact, err := c.store.Stage(actor, sessionID, relPath, content, origin)
	if err != nil {
		return nil, err
	}
	c.notify(webhook.EventArtifactStaged, sessionID, artifact.Path, actor, map[string]any{
		"hash":    string(artifact.ContentHash),
		"version": artifact.Version,
	})
	return artifact, nil
}

// Unstage removes relPath from the session sandbox.
func (c *Client) Unstage(actor string, sessionID model.SessionID, relPath string) error {
	return c.store.Remove(actor, sessionID, relPath)
}

// Generate runs a generator and stages every proposed file. The proposal is
// validated as a unit before anything is staged.
func (c *Client) Generate(ctx context.Context, actor string, sessionID model.SessionID, gen generator.Generator, inputs map[string]string) ([]*model.StagedArtifact, error) {
	files, err := gen.Generate(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("generator %s: %w", gen.Name(), err)
	}
	if err := generator.ValidateProposal(files); err != nil {
		return nil, fmt.Errorf("generator %s: %w", gen.Name(), err)
	}

	staged := make([]*model.StagedArtifact, 0, len(files))
	for _, file := range files {
		artifact, err := c.Stage(actor, sessionID, file.Path, file.Content, gen.Name())
		if err != nil {
			return staged, err
		}
		staged = append(staged, artifact)
	}
	return staged, nil
}

// TaskRegistry loads the task template registry from the configured task
// directories.
func (c *Client) TaskRegistry() (*generator.Registry, error) {
	return generator.NewRegistry(c.cfg.TaskDirPaths(c.ws.Root))
}

// Artifacts lists the latest version of every staged artifact in the session.
func (c *Client) Artifacts(sessionID model.SessionID) ([]*model.StagedArtifact, error) {
	return c.store.List(sessionID)
}

// ArtifactHistory lists every staged version of relPath.
func (c *Client) ArtifactHistory(sessionID model.SessionID, relPath string) ([]*model.StagedArtifact, error) {
	return c.store.History(sessionID, relPath)
}

// StagedContent returns the latest staged content for relPath.
func (c *Client) StagedContent(sessionID model.SessionID, relPath string) ([]byte, error) {
	return c.store.Read(sessionID, relPath)
}

// Review compares every staged artifact against the live tree.
func (c *Client) Review(sessionID model.SessionID) ([]*model.ConflictReport, error) {
	return c.detector.DetectAll(sessionID)
}

// ReviewPath compares a single staged artifact against the live tree.
func (c *Client) ReviewPath(sessionID model.SessionID, relPath string) (*model.ConflictReport, error) {
	return c.detector.Detect(sessionID, relPath)
}

// Decide records an approval decision for a single artifact.
func (c *Client) Decide(sessionID model.SessionID, relPath string, decision model.ApprovalState, actor string) (*model.ApprovalDecision, error) {
	dec, err := c.gate.Decide(sessionID, relPath, decision, actor)
	if err != nil {
		return nil, err
	}
	c.notify(webhook.EventArtifactDecided, sessionID, relPath, actor, map[string]any{
		"decision": string(decision),
	})
	return dec, nil
}

// DecideSession records the same decision for every pending artifact.
func (c *Client) DecideSession(sessionID model.SessionID, decision model.ApprovalState, actor string) ([]*model.ApprovalDecision, error) {
	decs, err := c.gate.DecideSession(sessionID, decision, actor)
	if err != nil {
		return nil, err
	}
	for _, dec := range decs {
		c.notify(webhook.EventArtifactDecided, sessionID, dec.Path, actor, map[string]any{
			"decision": string(decision),
		})
	}
	return decs, nil
}

// ApprovalStatus returns the effective approval state per artifact path.
func (c *Client) ApprovalStatus(sessionID model.SessionID) (map[string]model.ApprovalState, error) {
	return c.gate.Status(sessionID)
}

// Decisions returns the full decision history of the session.
func (c *Client) Decisions(sessionID model.SessionID) ([]*model.ApprovalDecision, error) {
	return c.gate.Decisions(sessionID)
}

// Apply moves every approved artifact into the live tree. The report is
// returned even when some artifacts were skipped or failed.
func (c *Client) Apply(ctx context.Context, actor string, sessionID model.SessionID, opts ApplyOptions) (*model.ApplyReport, error) {
	failFast := opts.FailFast || c.cfg.Apply.FailFast
	report, err := c.applier.Apply(ctx, actor, sessionID, apply.Options{
		FailFast: failFast,
		Progress: opts.Progress,
	})
	if err != nil {
		c.notify(webhook.EventApplyFailed, sessionID, "", actor, map[string]any{"error": err.Error()})
		return report, err
	}
	if report.Failed > 0 {
		c.notify(webhook.EventApplyFailed, sessionID, "", actor, map[string]any{
			"failed": report.Failed,
		})
	} else if report.Applied > 0 {
		c.notify(webhook.EventSessionApplied, sessionID, "", actor, map[string]any{
			"applied": report.Applied,
			"skipped": report.Skipped,
		})
	}
	return report, nil
}

// Discard abandons the session. Staged content stays on disk for the audit
// trail but the session accepts no further operations.
func (c *Client) Discard(actor string, sessionID model.SessionID) error {
	if err := c.sessions.Discard(actor, sessionID); err != nil {
		return err
	}
	c.notify(webhook.EventSessionDiscarded, sessionID, "", actor, nil)
	return nil
}

// Verify checks the audit chain and the staged content of every session.
func (c *Client) Verify() (*verify.Report, error) {
	report, err := c.verifier.VerifyAll()
	if err != nil {
		return nil, err
	}
	if !report.OK() {
		c.notify(webhook.EventVerifyFailed, "", "", "", map[string]any{
			"failed": report.Failed,
		})
	}
	return report, nil
}

// VerifySession checks the audit chain and a single session.
func (c *Client) VerifySession(sessionID model.SessionID) (*verify.Report, error) {
	return c.verifier.VerifySession(sessionID)
}

// History returns audit records, optionally filtered to one session. Pass
// the zero SessionID for the full log.
func (c *Client) History(sessionID model.SessionID) ([]*model.AuditRecord, error) {
	return c.audit.ReadAll(sessionID)
}

// LockStatus reports the current apply lock state.
func (c *Client) LockStatus() (model.LockState, *model.LockRecord, error) {
	return c.locks.Status()
}

// StealLock breaks an expired apply lock.
func (c *Client) StealLock(sessionID model.SessionID) (*model.LockRecord, error) {
	return c.locks.Steal(sessionID, "apply")
}

// ReleaseLock frees the apply lock held under holderNonce.
func (c *Client) ReleaseLock(holderNonce string) error {
	return c.locks.Release(holderNonce)
}

func (c *Client) notify(event webhook.EventType, sessionID model.SessionID, path, actor string, metadata map[string]any) {
	if c.hooks == nil {
		return
	}
	c.hooks.Send(webhook.Event{
		Event:         event,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		WorkspaceID:   c.ws.WorkspaceID,
		WorkspaceRoot: c.ws.Root,
		SessionID:     sessionID.String(),
		Path:          path,
		Actor:         actor,
		Metadata:      metadata,
	}, true)
}
