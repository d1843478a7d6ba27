package audit

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/model"
)

func newTestAppender(t *testing.T) *FileAppender {
	return NewFileAppender(filepath.Join(t.TempDir(), "audit", "audit.jsonl"))
}

func TestAppendAssignsMonotonicSeq(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()

	for i := 1; i <= 5; i++ {
		seq, err := a.Append("tester", model.EventStaged, sid, "a/b.go", map[string]any{"i": i})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), seq)
	}

	records, err := a.ReadAll("")
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, uint64(i+1), rec.Seq)
		assert.Equal(t, "tester", rec.Actor)
		assert.Equal(t, model.EventStaged, rec.EventKind)
	}
}

func TestAppendChainsHashes(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()

	_, err := a.Append("x", model.EventSessionOpen, sid, "", nil)
	require.NoError(t, err)
	_, err = a.Append("x", model.EventStaged, sid, "f.go", map[string]any{"hash": "abc"})
	require.NoError(t, err)

	records, err := a.ReadAll("")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Empty(t, records[0].PrevHash)
	assert.NotEmpty(t, records[0].RecordHash)
	assert.Equal(t, records[0].RecordHash, records[1].PrevHash)
}

func TestReadAllFiltersBySession(t *testing.T) {
	a := newTestAppender(t)
	sidA := model.NewSessionID()
	sidB := model.NewSessionID()

	_, err := a.Append("x", model.EventStaged, sidA, "a.go", nil)
	require.NoError(t, err)
	_, err = a.Append("x", model.EventStaged, sidB, "b.go", nil)
	require.NoError(t, err)
	_, err = a.Append("x", model.EventStaged, sidA, "c.go", nil)
	require.NoError(t, err)

	records, err := a.ReadAll(sidA)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, sidA, rec.SessionID)
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	a := newTestAppender(t)
	result, err := a.Verify()
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Zero(t, result.Records)
}

func TestVerifyIntactChain(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()
	for i := 0; i < 10; i++ {
		_, err := a.Append("x", model.EventStaged, sid, "f.go", map[string]any{"i": i})
		require.NoError(t, err)
	}

	result, err := a.Verify()
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, 10, result.Records)
}

func TestVerifyDetectsTamperedPayload(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()
	for i := 0; i < 3; i++ {
		_, err := a.Append("x", model.EventStaged, sid, "f.go", map[string]any{"i": i})
		require.NoError(t, err)
	}

	// Flip the actor of the second record
	lines := readLines(t, a.Path())
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	rec["actor"] = "mallory"
	tampered, err := json.Marshal(rec)
	require.NoError(t, err)
	lines[1] = string(tampered)
	writeLines(t, a.Path(), lines)

	result, err := a.Verify()
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, uint64(2), result.CorruptAt)
	assert.Contains(t, result.Reason, "hash mismatch")
}

func TestVerifyDetectsDeletedRecord(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()
	for i := 0; i < 4; i++ {
		_, err := a.Append("x", model.EventStaged, sid, "f.go", map[string]any{"i": i})
		require.NoError(t, err)
	}

	lines := readLines(t, a.Path())
	// Drop record 2; record 3 then has a sequence gap
	writeLines(t, a.Path(), append(lines[:1], lines[2:]...))

	result, err := a.Verify()
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Contains(t, result.Reason, "sequence gap")
}

func TestVerifyDetectsMalformedLine(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()
	_, err := a.Append("x", model.EventStaged, sid, "f.go", nil)
	require.NoError(t, err)

	f, err := os.OpenFile(a.Path(), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	result, err := a.Verify()
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, uint64(2), result.CorruptAt)
	assert.Equal(t, "malformed record", result.Reason)
}

func TestAppendConcurrent(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := a.Append("x", model.EventStaged, sid, "f.go", nil)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	result, err := a.Verify()
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, 80, result.Records)
}

func TestAppendPayloadHash(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()

	_, err := a.Append("x", model.EventDecision, sid, "f.go", map[string]any{"decision": "approved"})
	require.NoError(t, err)
	_, err = a.Append("x", model.EventSessionClose, sid, "", nil)
	require.NoError(t, err)

	records, err := a.ReadAll("")
	require.NoError(t, err)
	assert.NotEmpty(t, records[0].PayloadHash)
	assert.Empty(t, records[1].PayloadHash)
}

func TestAppendRefusesMalformedTail(t *testing.T) {
	a := newTestAppender(t)
	sid := model.NewSessionID()
	_, err := a.Append("x", model.EventStaged, sid, "f.go", nil)
	require.NoError(t, err)

	f, err := os.OpenFile(a.Path(), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = a.Append("x", model.EventStaged, sid, "g.go", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrAuditChainBroken))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}
