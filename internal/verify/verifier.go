// Package verify checks the integrity of the workspace control plane: the
// hash-chained audit log, the content-addressed object store of each
// session, and the preview mirror.
package verify

import (
	"fmt"
	"path/filepath"

	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/integrity"
	"github.com/agentic-project/agentic/internal/session"
	"github.com/agentic-project/agentic/internal/staging"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/model"
)

// CheckStatus is the outcome of a single verification check.
type CheckStatus string

const (
	StatusOK      CheckStatus = "ok"
	StatusCorrupt CheckStatus = "corrupt"
	StatusMissing CheckStatus = "missing"
)

// Check is one verification finding.
type Check struct {
	Name      string          `json:"name"`
	SessionID model.SessionID `json:"session_id,omitempty"`
	Path      string          `json:"path,omitempty"`
	Status    CheckStatus     `json:"status"`
	Detail    string          `json:"detail,omitempty"`
}

// Report aggregates all checks of a verification run.
type Report struct {
	Checks  []Check `json:"checks"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	AuditOK bool    `json:"audit_ok"`
}

// OK reports whether every check passed.
func (r *Report) OK() bool { return r.Failed == 0 }

func (r *Report) add(c Check) {
	r.Checks = append(r.Checks, c)
	if c.Status == StatusOK {
		r.Passed++
	} else {
		r.Failed++
	}
}

// Verifier validates workspace integrity.
type Verifier struct {
	ws       *workspace.Workspace
	sessions *session.Manager
	store    *staging.Store
	audit    *audit.FileAppender
}

// NewVerifier creates a verifier over the workspace.
func NewVerifier(ws *workspace.Workspace, sessions *session.Manager, store *staging.Store, appender *audit.FileAppender) *Verifier {
	return &Verifier{ws: ws, sessions: sessions, store: store, audit: appender}
}

// VerifyAll checks the audit chain and every session.
func (v *Verifier) VerifyAll() (*Report, error) {
	report := &Report{}
	v.verifyAudit(report)

	records, err := v.sessions.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := v.verifySession(report, rec.SessionID); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// VerifySession checks the audit chain and a single session.
func (v *Verifier) VerifySession(sessionID model.SessionID) (*Report, error) {
	if _, err := v.sessions.Get(sessionID); err != nil {
		return nil, err
	}
	report := &Report{}
	v.verifyAudit(report)
	if err := v.verifySession(report, sessionID); err != nil {
		return nil, err
	}
	return report, nil
}

func (v *Verifier) verifyAudit(report *Report) {
	result, err := v.audit.Verify()
	if err != nil {
		report.add(Check{Name: "audit_chain", Status: StatusCorrupt, Detail: err.Error()})
		return
	}
	if !result.OK {
		report.add(Check{
			Name:   "audit_chain",
			Status: StatusCorrupt,
			Detail: fmt.Sprintf("record %d: %s", result.CorruptAt, result.Reason),
		})
		return
	}
	report.AuditOK = true
	report.add(Check{
		Name:   "audit_chain",
		Status: StatusOK,
		Detail: fmt.Sprintf("%d records", result.Records),
	})
}

// verifySession checks that every manifest version has its object stored
// under the recorded hash, and that the preview mirror holds the latest
// content of every live artifact.
func (v *Verifier) verifySession(report *Report, sessionID model.SessionID) error {
	history, err := v.store.Manifest(sessionID)
	if err != nil {
		report.add(Check{
			Name:      "manifest",
			SessionID: sessionID,
			Status:    StatusCorrupt,
			Detail:    err.Error(),
		})
		return nil
	}

	for _, artifact := range history {
		if artifact.Removed {
			continue
		}
		v.verifyObject(report, sessionID, artifact)
	}

	latest, err := v.store.List(sessionID)
	if err != nil {
		return err
	}
	for _, artifact := range latest {
		v.verifyPreview(report, sessionID, artifact)
	}
	return nil
}

func (v *Verifier) verifyObject(report *Report, sessionID model.SessionID, artifact *model.StagedArtifact) {
	check := Check{
		Name:      "object",
		SessionID: sessionID,
		Path:      fmt.Sprintf("%s@v%d", artifact.Path, artifact.Version),
	}
	objPath := filepath.Join(v.ws.SessionDir(sessionID), "objects", string(artifact.ContentHash))
	hash, exists, err := integrity.FileHash(objPath)
	switch {
	case err != nil:
		check.Status = StatusCorrupt
		check.Detail = err.Error()
	case !exists:
		check.Status = StatusMissing
		check.Detail = "object file missing"
	case hash != artifact.ContentHash:
		check.Status = StatusCorrupt
		check.Detail = fmt.Sprintf("object hash %s does not match manifest %s", hash, artifact.ContentHash)
	default:
		check.Status = StatusOK
	}
	report.add(check)
}

func (v *Verifier) verifyPreview(report *Report, sessionID model.SessionID, artifact *model.StagedArtifact) {
	check := Check{
		Name:      "preview",
		SessionID: sessionID,
		Path:      artifact.Path,
	}
	previewPath := filepath.Join(v.ws.PreviewDir(sessionID), filepath.FromSlash(artifact.Path))
	hash, exists, err := integrity.FileHash(previewPath)
	switch {
	case err != nil:
		check.Status = StatusCorrupt
		check.Detail = err.Error()
	case !exists:
		check.Status = StatusMissing
		check.Detail = "preview file missing"
	case hash != artifact.ContentHash:
		check.Status = StatusCorrupt
		check.Detail = fmt.Sprintf("preview content %s does not match staged %s", hash, artifact.ContentHash)
	default:
		check.Status = StatusOK
	}
	report.add(check)
}
