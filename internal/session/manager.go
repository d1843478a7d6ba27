// Package session manages generation session lifecycle.
//
// A session is one generation run; it owns the staged artifacts produced for
// it. Discarding a session keeps its staged content and audit entries for
// forensics, but nothing it staged ever reaches the live tree.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/fsutil"
	"github.com/agentic-project/agentic/pkg/model"
)

// Manager handles session records for one workspace.
type Manager struct {
	ws    *workspace.Workspace
	audit *audit.FileAppender
}

// NewManager creates a new session manager.
func NewManager(ws *workspace.Workspace, appender *audit.FileAppender) *Manager {
	return &Manager{ws: ws, audit: appender}
}

// Create opens a new session and its preview directory.
func (m *Manager) Create(actor, note string) (*model.SessionRecord, error) {
	id := model.NewSessionID()

	sessionDir := m.ws.SessionDir(id)
	for _, dir := range []string{sessionDir, filepath.Join(sessionDir, "objects"), m.ws.PreviewDir(id)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	rec := &model.SessionRecord{
		SessionID: id,
		CreatedAt: time.Now().UTC(),
		Status:    model.SessionOpen,
		Note:      note,
	}
	if err := m.writeRecord(rec); err != nil {
		return nil, err
	}

	if _, err := m.audit.Append(actor, model.EventSessionOpen, id, "", map[string]any{"note": note}); err != nil {
		return nil, fmt.Errorf("audit session open: %w", err)
	}

	return rec, nil
}

// Get loads a session record.
func (m *Manager) Get(id model.SessionID) (*model.SessionRecord, error) {
	path := filepath.Join(m.ws.SessionDir(id), "session.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.ErrUnknownSession.WithMessagef("unknown session: %s", id)
		}
		return nil, fmt.Errorf("read session record: %w", err)
	}
	var rec model.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errclass.ErrManifestCorrupt.WithMessagef("parse session record: %v", err)
	}
	return &rec, nil
}

// RequireOpen loads a session and fails unless it is still open.
func (m *Manager) RequireOpen(id model.SessionID) (*model.SessionRecord, error) {
	rec, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if !rec.IsOpen() {
		return nil, errclass.ErrSessionClosed.WithMessagef("session %s is %s", id, rec.Status)
	}
	return rec, nil
}

// List returns all session records, newest first.
func (m *Manager) List() ([]*model.SessionRecord, error) {
	entries, err := os.ReadDir(m.ws.SessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	var records []*model.SessionRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := m.Get(model.SessionID(entry.Name()))
		if err != nil {
			continue // skip unreadable entries
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SessionID > records[j].SessionID
	})
	return records, nil
}

// Latest returns the most recently created open session, or nil if none.
func (m *Manager) Latest() (*model.SessionRecord, error) {
	records, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.IsOpen() {
			return rec, nil
		}
	}
	return nil, nil
}

// Close marks a session closed after a completed apply.
func (m *Manager) Close(actor string, id model.SessionID) error {
	return m.transition(actor, id, model.SessionClosed, model.EventSessionClose)
}

// Discard abandons a session. Staged content and audit entries persist, but
// the session no longer accepts staging or apply.
func (m *Manager) Discard(actor string, id model.SessionID) error {
	return m.transition(actor, id, model.SessionDiscarded, model.EventSessionDiscard)
}

func (m *Manager) transition(actor string, id model.SessionID, status model.SessionStatus, kind model.AuditEventKind) error {
	rec, err := m.RequireOpen(id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rec.Status = status
	rec.ClosedAt = &now
	if err := m.writeRecord(rec); err != nil {
		return err
	}

	if _, err := m.audit.Append(actor, kind, id, "", nil); err != nil {
		return fmt.Errorf("audit session %s: %w", status, err)
	}
	return nil
}

func (m *Manager) writeRecord(rec *model.SessionRecord) error {
	path := filepath.Join(m.ws.SessionDir(rec.SessionID), "session.json")
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	return fsutil.AtomicWrite(path, data, 0644)
}
