package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-project/agentic/pkg/errclass"
)

func TestValidateName(t *testing.T) {
	valid := []string{"assistant", "scaffold-http", "task_v2", "a.b.c", "A1"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{"", "..", "a..b", "a/b", `a\b`, "with space", "tab\there", "café"}
	for _, name := range invalid {
		err := ValidateName(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, errclass.ErrNameInvalid), name)
	}
}

func TestValidateRelPath(t *testing.T) {
	valid := []string{"main.go", "cmd/api/main.go", "a/b/c.txt", "deep/./path.go"}
	for _, rel := range valid {
		assert.NoError(t, ValidateRelPath(rel), rel)
	}

	invalid := []string{
		"",
		"   ",
		"/etc/passwd",
		"~/secrets",
		"..",
		"../outside.go",
		"a/../../b",
		"a/..",
		"nul\x00byte",
		`\absolute`,
	}
	for _, rel := range invalid {
		err := ValidateRelPath(rel)
		require.Error(t, err, rel)
		assert.True(t, errors.Is(err, errclass.ErrPathTraversal), rel)
	}
}

func TestValidateRelPathBackslashTraversal(t *testing.T) {
	// Backslash separators must not hide a dotdot segment on any platform
	err := ValidateRelPath(`..\..\etc\passwd`)
	// On unix the backslash is a filename character; the leading ".."
	// segment is still caught.
	assert.Error(t, err)
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	target, err := SafeJoin(root, "sub/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub", "file.txt"), target)

	// Target may not exist yet
	target, err = SafeJoin(root, "not/yet/created.go")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(target))
}

func TestSafeJoinRejectsEscape(t *testing.T) {
	root := t.TempDir()

	for _, rel := range []string{"../escape", "a/../../escape", "/abs"} {
		_, err := SafeJoin(root, rel)
		require.Error(t, err, rel)
		assert.True(t, errors.Is(err, errclass.ErrPathTraversal), rel)
	}
}

func TestSafeJoinSymlinkEscape(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.MkdirAll(outside, 0755))

	// A symlinked directory inside the root pointing outside it
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(outside, link))

	_, err := SafeJoin(root, "link/stolen.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrPathTraversal))
}

func TestSafeJoinThroughSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	real := filepath.Join(base, "real")
	require.NoError(t, os.MkdirAll(real, 0755))
	link := filepath.Join(base, "alias")
	require.NoError(t, os.Symlink(real, link))

	// A root that is itself a symlink is fine as long as targets stay inside
	_, err := SafeJoin(link, "file.txt")
	assert.NoError(t, err)
}

func TestValidateRelPathRejectsControlDirectory(t *testing.T) {
	reserved := []string{
		".agentic",
		".agentic/workspace_id",
		".agentic/sessions/s/decisions.jsonl",
		"./.agentic/config.yaml",
	}
	for _, rel := range reserved {
		err := ValidateRelPath(rel)
		require.Error(t, err, rel)
		assert.True(t, errors.Is(err, errclass.ErrPathTraversal), rel)
	}

	// Only the root control directory is reserved
	assert.NoError(t, ValidateRelPath("docs/.agentic/notes.md"))
	assert.NoError(t, ValidateRelPath(".agentic.md"))
}
