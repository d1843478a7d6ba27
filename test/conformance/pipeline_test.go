//go:build conformance

package conformance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-project/agentic/pkg/agentic"
	"github.com/agentic-project/agentic/pkg/model"
)

// E2E Scenario: Complete Pipeline (Integration)
// User Story: an operator reviews and lands AI-generated changes end to end

func createFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// TestE2E_Pipeline_CompleteWorkflow walks the whole lifecycle: init, stage,
// review, decide, apply, verify, history.
func TestE2E_Pipeline_CompleteWorkflow(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	client, err := agentic.Init(root)
	require.NoError(t, err)
	defer client.Close()

	// Pre-existing project files the assistant will touch
	createFiles(t, root, map[string]string{
		"README.md":   "# My Project\n",
		"src/main.go": "package main\n\nfunc main() {}\n",
	})

	var sid model.SessionID

	t.Run("stage_proposals", func(t *testing.T) {
		rec, err := client.NewSession("alice", "add logging")
		require.NoError(t, err)
		sid = rec.SessionID

		proposals := map[string]string{
			"src/main.go":      "package main\n\nimport \"log\"\n\nfunc main() { log.Println(\"up\") }\n",
			"src/log/setup.go": "package log\n",
			"docs/logging.md":  "# Logging\n",
		}
		for rel, content := range proposals {
			_, err := client.Stage("alice", sid, rel, []byte(content), "model")
			require.NoError(t, err)
		}

		// Nothing in the live tree changed yet
		data, err := os.ReadFile(filepath.Join(root, "src/main.go"))
		require.NoError(t, err)
		assert.Equal(t, "package main\n\nfunc main() {}\n", string(data))
	})

	t.Run("review_conflicts", func(t *testing.T) {
		reports, err := client.Review(sid)
		require.NoError(t, err)
		require.Len(t, reports, 3)

		byPath := make(map[string]model.ConflictClass)
		for _, r := range reports {
			byPath[r.Path] = r.Class
		}
		assert.Equal(t, model.ConflictDiverged, byPath["src/main.go"])
		assert.Equal(t, model.ConflictNew, byPath["src/log/setup.go"])
		assert.Equal(t, model.ConflictNew, byPath["docs/logging.md"])
	})

	t.Run("decide", func(t *testing.T) {
		_, err := client.Decide(sid, "src/main.go", agentic.Approve, "alice")
		require.NoError(t, err)
		_, err = client.Decide(sid, "src/log/setup.go", agentic.Approve, "alice")
		require.NoError(t, err)
		_, err = client.Decide(sid, "docs/logging.md", agentic.Reject, "alice")
		require.NoError(t, err)

		states, err := client.ApprovalStatus(sid)
		require.NoError(t, err)
		assert.Equal(t, model.ApprovalApproved, states["src/main.go"])
		assert.Equal(t, model.ApprovalRejected, states["docs/logging.md"])
	})

	t.Run("apply", func(t *testing.T) {
		report, err := client.Apply(ctx, "alice", sid, agentic.ApplyOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Applied)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, 0, report.Failed)

		data, err := os.ReadFile(filepath.Join(root, "src/main.go"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "log.Println")
		assert.FileExists(t, filepath.Join(root, "src/log/setup.go"))
		assert.NoFileExists(t, filepath.Join(root, "docs/logging.md"))

		rec, err := client.Session(sid)
		require.NoError(t, err)
		assert.Equal(t, model.SessionClosed, rec.Status)
	})

	t.Run("verify_and_history", func(t *testing.T) {
		report, err := client.Verify()
		require.NoError(t, err)
		assert.True(t, report.OK())

		records, err := client.History(sid)
		require.NoError(t, err)
		kinds := make(map[model.AuditEventKind]int)
		for _, rec := range records {
			kinds[rec.EventKind]++
		}
		assert.Equal(t, 1, kinds[model.EventSessionOpen])
		assert.Equal(t, 3, kinds[model.EventStaged])
		assert.Equal(t, 3, kinds[model.EventDecision])
		assert.Equal(t, 2, kinds[model.EventApplied])
		assert.Equal(t, 1, kinds[model.EventApplySkipped])
		assert.Equal(t, 1, kinds[model.EventSessionClose])
	})
}

// TestE2E_Pipeline_DiscardAbandonsWork covers the bail-out path: staged work
// is abandoned and the live tree stays untouched.
func TestE2E_Pipeline_DiscardAbandonsWork(t *testing.T) {
	root := t.TempDir()
	client, err := agentic.Init(root)
	require.NoError(t, err)
	defer client.Close()

	rec, err := client.NewSession("bob", "experiment")
	require.NoError(t, err)
	_, err = client.Stage("bob", rec.SessionID, "experiment.go", []byte("package experiment\n"), "model")
	require.NoError(t, err)

	require.NoError(t, client.Discard("bob", rec.SessionID))

	assert.NoFileExists(t, filepath.Join(root, "experiment.go"))

	// Staged content survives for the audit trail
	content, err := client.StagedContent(rec.SessionID, "experiment.go")
	require.NoError(t, err)
	assert.Equal(t, "package experiment\n", string(content))

	// But the session accepts no further operations
	_, err = client.Stage("bob", rec.SessionID, "more.go", []byte("x"), "model")
	require.Error(t, err)
}

// TestE2E_Pipeline_ConcurrentApply ensures a second operator cannot apply
// while the first holds the lock.
func TestE2E_Pipeline_ConcurrentApply(t *testing.T) {
	root := t.TempDir()
	client, err := agentic.Init(root)
	require.NoError(t, err)
	defer client.Close()

	rec, err := client.NewSession("alice", "")
	require.NoError(t, err)
	_, err = client.Stage("alice", rec.SessionID, "a.go", []byte("package a\n"), "model")
	require.NoError(t, err)
	_, err = client.Decide(rec.SessionID, "a.go", agentic.Approve, "alice")
	require.NoError(t, err)

	held, err := client.StealLock(rec.SessionID)
	require.NoError(t, err)

	_, err = client.Apply(context.Background(), "bob", rec.SessionID, agentic.ApplyOptions{})
	require.Error(t, err)

	require.NoError(t, client.ReleaseLock(held.HolderNonce))
	report, err := client.Apply(context.Background(), "alice", rec.SessionID, agentic.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)
}
