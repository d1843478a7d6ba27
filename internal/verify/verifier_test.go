package verify_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/session"
	"github.com/agentic-project/agentic/internal/staging"
	"github.com/agentic-project/agentic/internal/verify"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/model"
)

type fixture struct {
	ws       *workspace.Workspace
	store    *staging.Store
	verifier *verify.Verifier
	sid      model.SessionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ws, err := workspace.Init(t.TempDir())
	require.NoError(t, err)
	appender := audit.NewFileAppender(ws.AuditLogPath())
	sessions := session.NewManager(ws, appender)
	store := staging.NewStore(ws, sessions, appender)
	rec, err := sessions.Create("tester", "")
	require.NoError(t, err)
	return &fixture{
		ws:       ws,
		store:    store,
		verifier: verify.NewVerifier(ws, sessions, store, appender),
		sid:      rec.SessionID,
	}
}

func (f *fixture) stage(t *testing.T, rel, content string) *model.StagedArtifact {
	t.Helper()
	artifact, err := f.store.Stage("tester", f.sid, rel, []byte(content), "model")
	require.NoError(t, err)
	return artifact
}

func findCheck(report *verify.Report, name, path string) (verify.Check, bool) {
	for _, c := range report.Checks {
		if c.Name == name && c.Path == path {
			return c, true
		}
	}
	return verify.Check{}, false
}

func TestVerifyCleanSession(t *testing.T) {
	f := newFixture(t)
	f.stage(t, "a.go", "package a\n")
	f.stage(t, "sub/b.go", "package sub\n")

	report, err := f.verifier.VerifySession(f.sid)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.True(t, report.AuditOK)
	// audit chain + two objects + two preview files
	assert.Equal(t, 5, report.Passed)
	assert.Equal(t, 0, report.Failed)
}

func TestVerifyTamperedObject(t *testing.T) {
	f := newFixture(t)
	artifact := f.stage(t, "a.go", "package a\n")

	objPath := filepath.Join(f.ws.SessionDir(f.sid), "objects", string(artifact.ContentHash))
	require.NoError(t, os.WriteFile(objPath, []byte("tampered"), 0644))

	report, err := f.verifier.VerifySession(f.sid)
	require.NoError(t, err)
	assert.False(t, report.OK())

	check, ok := findCheck(report, "object", "a.go@v1")
	require.True(t, ok)
	assert.Equal(t, verify.StatusCorrupt, check.Status)
	assert.Contains(t, check.Detail, "does not match manifest")
}

func TestVerifyMissingObject(t *testing.T) {
	f := newFixture(t)
	artifact := f.stage(t, "a.go", "package a\n")

	objPath := filepath.Join(f.ws.SessionDir(f.sid), "objects", string(artifact.ContentHash))
	require.NoError(t, os.Remove(objPath))

	report, err := f.verifier.VerifySession(f.sid)
	require.NoError(t, err)
	check, ok := findCheck(report, "object", "a.go@v1")
	require.True(t, ok)
	assert.Equal(t, verify.StatusMissing, check.Status)
}

func TestVerifyTamperedPreview(t *testing.T) {
	f := newFixture(t)
	f.stage(t, "a.go", "package a\n")

	previewPath := filepath.Join(f.ws.PreviewDir(f.sid), "a.go")
	require.NoError(t, os.WriteFile(previewPath, []byte("edited by hand"), 0644))

	report, err := f.verifier.VerifySession(f.sid)
	require.NoError(t, err)
	check, ok := findCheck(report, "preview", "a.go")
	require.True(t, ok)
	assert.Equal(t, verify.StatusCorrupt, check.Status)
}

func TestVerifyMissingPreview(t *testing.T) {
	f := newFixture(t)
	f.stage(t, "a.go", "package a\n")

	require.NoError(t, os.Remove(filepath.Join(f.ws.PreviewDir(f.sid), "a.go")))

	report, err := f.verifier.VerifySession(f.sid)
	require.NoError(t, err)
	check, ok := findCheck(report, "preview", "a.go")
	require.True(t, ok)
	assert.Equal(t, verify.StatusMissing, check.Status)
}

func TestVerifySkipsTombstones(t *testing.T) {
	f := newFixture(t)
	f.stage(t, "gone.go", "temporary\n")
	require.NoError(t, f.store.Remove("tester", f.sid, "gone.go"))

	report, err := f.verifier.VerifySession(f.sid)
	require.NoError(t, err)
	assert.True(t, report.OK())
	// The v1 object of the removed path is still verified; the tombstone
	// and the deleted preview file are not.
	_, hasPreview := findCheck(report, "preview", "gone.go")
	assert.False(t, hasPreview)
	_, hasObject := findCheck(report, "object", "gone.go@v1")
	assert.True(t, hasObject)
}

func TestVerifyTamperedAuditLog(t *testing.T) {
	f := newFixture(t)
	f.stage(t, "a.go", "package a\n")

	data, err := os.ReadFile(f.ws.AuditLogPath())
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"actor":"tester"`, `"actor":"mallory"`, 1)
	require.NotEqual(t, string(data), tampered)
	require.NoError(t, os.WriteFile(f.ws.AuditLogPath(), []byte(tampered), 0644))

	report, err := f.verifier.VerifySession(f.sid)
	require.NoError(t, err)
	assert.False(t, report.AuditOK)
	check, ok := findCheck(report, "audit_chain", "")
	require.True(t, ok)
	assert.Equal(t, verify.StatusCorrupt, check.Status)
}

func TestVerifyAllCoversEverySession(t *testing.T) {
	f := newFixture(t)
	f.stage(t, "one.go", "1")

	appender := audit.NewFileAppender(f.ws.AuditLogPath())
	sessions := session.NewManager(f.ws, appender)
	store := staging.NewStore(f.ws, sessions, appender)
	rec, err := sessions.Create("tester", "second")
	require.NoError(t, err)
	_, err = store.Stage("tester", rec.SessionID, "two.go", []byte("2"), "model")
	require.NoError(t, err)

	report, err := f.verifier.VerifyAll()
	require.NoError(t, err)
	assert.True(t, report.OK())

	seen := make(map[model.SessionID]bool)
	for _, c := range report.Checks {
		if c.SessionID != "" {
			seen[c.SessionID] = true
		}
	}
	assert.Len(t, seen, 2)
}

func TestVerifyUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.verifier.VerifySession("0000000000000-deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrUnknownSession))
}
