package conflict_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/conflict"
	"github.com/agentic-project/agentic/internal/session"
	"github.com/agentic-project/agentic/internal/staging"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/model"
)

type fixture struct {
	ws       *workspace.Workspace
	store    *staging.Store
	detector *conflict.Detector
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
		detector: conflict.NewDetector(ws, store),
		sid:      rec.SessionID,
	}
}

func (f *fixture) stage(t *testing.T, rel, content string) {
	t.Helper()
	_, err := f.store.Stage("tester", f.sid, rel, []byte(content), "model")
	require.NoError(t, err)
}

func (f *fixture) writeLive(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.ws.Root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDetectNew(t *testing.T) {
	f := newFixture(t)
	f.stage(t, "brand/new.go", "package brand\n")

	report, err := f.detector.Detect(f.sid, "brand/new.go")
	require.NoError(t, err)
	assert.Equal(t, model.ConflictNew, report.Class)
	assert.Empty(t, report.LiveHash)
	assert.Empty(t, report.Diff)
}

func TestDetectIdentical(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "same.go", "package same\n")
	f.stage(t, "same.go", "package same\n")

	report, err := f.detector.Detect(f.sid, "same.go")
	require.NoError(t, err)
	assert.Equal(t, model.ConflictIdentical, report.Class)
	assert.Equal(t, report.StagedHash, report.LiveHash)
	assert.Empty(t, report.Diff)
}

func TestDetectDiverged(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "main.go", "package main\n\nfunc old() {}\n")
	f.stage(t, "main.go", "package main\n\nfunc new() {}\n")

	report, err := f.detector.Detect(f.sid, "main.go")
	require.NoError(t, err)
	assert.Equal(t, model.ConflictDiverged, report.Class)
	assert.NotEqual(t, report.StagedHash, report.LiveHash)
	assert.Contains(t, report.Diff, "-func old() {}")
	assert.Contains(t, report.Diff, "+func new() {}")
	assert.Contains(t, report.Diff, " package main")
}

func TestDetectAllSorted(t *testing.T) {
	f := newFixture(t)
	f.writeLive(t, "b.go", "live\n")
	f.stage(t, "b.go", "staged\n")
	f.stage(t, "a.go", "fresh\n")

	reports, err := f.detector.DetectAll(f.sid)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "a.go", reports[0].Path)
	assert.Equal(t, model.ConflictNew, reports[0].Class)
	assert.Equal(t, "b.go", reports[1].Path)
	assert.Equal(t, model.ConflictDiverged, reports[1].Class)
}

func TestLiveHash(t *testing.T) {
	f := newFixture(t)

	_, exists, err := f.detector.LiveHash("absent.go")
	require.NoError(t, err)
	assert.False(t, exists)

	f.writeLive(t, "present.go", "content")
	hash, exists, err := f.detector.LiveHash("present.go")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NotEmpty(t, hash)
}
