package staging_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/session"
	"github.com/agentic-project/agentic/internal/staging"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/model"
)

type fixture struct {
	ws       *workspace.Workspace
	store    *staging.Store
	appender *audit.FileAppender
	sid      model.SessionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ws, err := workspace.Init(t.TempDir())
	require.NoError(t, err)
	appender := audit.NewFileAppender(ws.AuditLogPath())
	sessions := session.NewManager(ws, appender)
	rec, err := sessions.Create("tester", "")
	require.NoError(t, err)
	return &fixture{
		ws:       ws,
		store:    staging.NewStore(ws, sessions, appender),
		appender: appender,
		sid:      rec.SessionID,
	}
}

func TestStageWritesPreviewMirror(t *testing.T) {
	f := newFixture(t)

	artifact, err := f.store.Stage("tester", f.sid, "cmd/api/main.go", []byte("package main\n"), "model")
	require.NoError(t, err)
	assert.Equal(t, "cmd/api/main.go", artifact.Path)
	assert.Equal(t, 1, artifact.Version)
	assert.Equal(t, int64(13), artifact.Size)
	assert.Equal(t, "model", artifact.Origin)

	// Preview mirror has the project-relative layout
	data, err := os.ReadFile(filepath.Join(f.ws.PreviewDir(f.sid), "cmd", "api", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))

	// Live tree untouched
	_, err = os.Stat(filepath.Join(f.ws.Root, "cmd"))
	assert.True(t, os.IsNotExist(err))
}

func TestStageVersionsAccumulate(t *testing.T) {
	f := newFixture(t)

	v1, err := f.store.Stage("tester", f.sid, "a.go", []byte("one"), "model")
	require.NoError(t, err)
	v2, err := f.store.Stage("tester", f.sid, "a.go", []byte("two"), "model")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, 2, v2.Version)

	// Latest wins in List and in the mirror
	artifacts, err := f.store.List(f.sid)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, 2, artifacts[0].Version)

	data, err := os.ReadFile(filepath.Join(f.ws.PreviewDir(f.sid), "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// Prior version content is still retrievable
	old, err := f.store.ReadVersion(f.sid, v1)
	require.NoError(t, err)
	assert.Equal(t, "one", string(old))

	history, err := f.store.History(f.sid, "a.go")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestStageRejectsTraversal(t *testing.T) {
	f := newFixture(t)

	for _, rel := range []string{"../escape.go", "/etc/passwd", "a/../../b.go", "~/.ssh/config"} {
		_, err := f.store.Stage("tester", f.sid, rel, []byte("evil"), "model")
		require.Error(t, err, rel)
		assert.True(t, errors.Is(err, errclass.ErrPathTraversal), rel)
	}

	// Nothing was written anywhere under the workspace
	entries, err := os.ReadDir(f.ws.PreviewDir(f.sid))
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Each rejection was audited
	records, err := f.appender.ReadAll(f.sid)
	require.NoError(t, err)
	rejected := 0
	for _, rec := range records {
		if rec.EventKind == model.EventStageRejected {
			rejected++
		}
	}
	assert.Equal(t, 4, rejected)
}

func TestStageSymlinkEscapeRejected(t *testing.T) {
	f := newFixture(t)

	outside := t.TempDir()
	link := filepath.Join(f.ws.PreviewDir(f.sid), "link")
	require.NoError(t, os.Symlink(outside, link))

	_, err := f.store.Stage("tester", f.sid, "link/stolen.go", []byte("x"), "model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrPathTraversal))

	entries, err := os.ReadDir(outside)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be written outside the sandbox")
}

func TestStageClosedSession(t *testing.T) {
	f := newFixture(t)

	ws := f.ws
	appender := f.appender
	sessions := session.NewManager(ws, appender)
	require.NoError(t, sessions.Discard("tester", f.sid))

	_, err := f.store.Stage("tester", f.sid, "a.go", []byte("x"), "model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrSessionClosed))
}

func TestGetUnknownArtifact(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Get(f.sid, "never/staged.go")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrUnknownArtifact))
}

func TestListSortedByPath(t *testing.T) {
	f := newFixture(t)

	for _, rel := range []string{"zz.go", "aa.go", "mm/nn.go"} {
		_, err := f.store.Stage("tester", f.sid, rel, []byte(rel), "model")
		require.NoError(t, err)
	}

	artifacts, err := f.store.List(f.sid)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)
	assert.Equal(t, "aa.go", artifacts[0].Path)
	assert.Equal(t, "mm/nn.go", artifacts[1].Path)
	assert.Equal(t, "zz.go", artifacts[2].Path)
}

func TestRemoveTombstones(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Stage("tester", f.sid, "pkg/a.go", []byte("x"), "model")
	require.NoError(t, err)
	require.NoError(t, f.store.Remove("tester", f.sid, "pkg/a.go"))

	// Gone from the listing and the mirror
	artifacts, err := f.store.List(f.sid)
	require.NoError(t, err)
	assert.Empty(t, artifacts)
	_, err = os.Stat(filepath.Join(f.ws.PreviewDir(f.sid), "pkg"))
	assert.True(t, os.IsNotExist(err), "empty parent dirs pruned")

	_, err = f.store.Get(f.sid, "pkg/a.go")
	assert.True(t, errors.Is(err, errclass.ErrUnknownArtifact))

	// The manifest keeps the full history including the tombstone
	history, err := f.store.Manifest(f.sid)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[1].Removed)
}

func TestRestageAfterRemove(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Stage("tester", f.sid, "a.go", []byte("one"), "model")
	require.NoError(t, err)
	require.NoError(t, f.store.Remove("tester", f.sid, "a.go"))

	again, err := f.store.Stage("tester", f.sid, "a.go", []byte("three"), "model")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Version, "tombstone consumed version 2")

	artifacts, err := f.store.List(f.sid)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Stage("tester", f.sid, "a.go", []byte("12345"), "model")
	require.NoError(t, err)
	_, err = f.store.Stage("tester", f.sid, "b.go", []byte("123"), "model")
	require.NoError(t, err)

	stats, err := f.store.Stats(f.sid)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Artifacts)
	assert.Equal(t, int64(8), stats.TotalBytes)
	assert.Equal(t, f.ws.PreviewDir(f.sid), stats.PreviewDir)
}

func TestManifestCorruption(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Stage("tester", f.sid, "a.go", []byte("x"), "model")
	require.NoError(t, err)

	manifest := filepath.Join(f.ws.SessionDir(f.sid), "manifest.jsonl")
	fh, err := os.OpenFile(manifest, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = fh.WriteString("garbage\n")
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	_, err = f.store.List(f.sid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrManifestCorrupt))
}

func TestStageRejectsControlDirectory(t *testing.T) {
	f := newFixture(t)

	idPath := filepath.Join(f.ws.Root, workspace.AgenticDirName, workspace.WorkspaceIDFile)
	before, err := os.ReadFile(idPath)
	require.NoError(t, err)

	_, err = f.store.Stage("tester", f.sid, ".agentic/workspace_id", []byte("forged"), "model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrPathTraversal))

	// The control plane is untouched and the attempt is on the record
	after, err := os.ReadFile(idPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	records, err := f.appender.ReadAll(f.sid)
	require.NoError(t, err)
	var rejected bool
	for _, rec := range records {
		if rec.EventKind == model.EventStageRejected && rec.Path == ".agentic/workspace_id" {
			rejected = true
		}
	}
	assert.True(t, rejected)
}

func TestConcurrentStageDistinctVersions(t *testing.T) {
	f := newFixture(t)

	const writers = 32
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := []byte(fmt.Sprintf("package main // rev %d\n", i))
			_, errs[i] = f.store.Stage("tester", f.sid, "main.go", content, "model")
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	// Every writer minted its own version, with no gaps and no duplicates
	records, err := f.store.Manifest(f.sid)
	require.NoError(t, err)
	require.Len(t, records, writers)

	seen := make(map[int]bool, writers)
	for _, rec := range records {
		assert.False(t, seen[rec.Version], "version %d assigned twice", rec.Version)
		seen[rec.Version] = true
	}
	for v := 1; v <= writers; v++ {
		assert.True(t, seen[v], "version %d never assigned", v)
	}
}
