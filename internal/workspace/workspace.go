// Package workspace handles initialization and discovery of the .agentic
// control directory inside a project.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-project/agentic/pkg/config"
	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/fsutil"
	"github.com/agentic-project/agentic/pkg/model"
	"github.com/agentic-project/agentic/pkg/pathutil"
	"github.com/agentic-project/agentic/pkg/uuidutil"
)

const (
	FormatVersion     = 1
	AgenticDirName    = pathutil.ReservedDirName
	FormatVersionFile = "format_version"
	WorkspaceIDFile   = "workspace_id"
)

// Workspace represents an initialized agentic workspace. Root is the live
// project tree; everything the pipeline writes before apply lives under
// Root/.agentic.
type Workspace struct {
	Root          string
	FormatVersion int
	WorkspaceID   string
}

// Init creates a new agentic workspace at the specified project path.
func Init(path string) (*Workspace, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	agenticDir := filepath.Join(absPath, AgenticDirName)
	dirs := []string{
		agenticDir,
		filepath.Join(agenticDir, "preview"),
		filepath.Join(agenticDir, "sessions"),
		filepath.Join(agenticDir, "audit"),
		filepath.Join(agenticDir, "locks"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	// Write format_version
	if err := os.WriteFile(filepath.Join(agenticDir, FormatVersionFile), []byte("1\n"), 0644); err != nil {
		return nil, fmt.Errorf("write format_version: %w", err)
	}

	// Write workspace_id
	workspaceID := uuidutil.NewV4()
	if err := os.WriteFile(filepath.Join(agenticDir, WorkspaceIDFile), []byte(workspaceID+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write workspace_id: %w", err)
	}

	// Write default config unless one already exists
	if _, err := os.Stat(config.Path(absPath)); os.IsNotExist(err) {
		if err := config.Save(absPath, config.Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	// Fsync parent to ensure durability
	if err := fsutil.FsyncDir(absPath); err != nil {
		return nil, fmt.Errorf("fsync workspace root: %w", err)
	}

	return &Workspace{
		Root:          absPath,
		FormatVersion: FormatVersion,
		WorkspaceID:   workspaceID,
	}, nil
}

// Discover walks up from cwd to find the workspace root (directory containing
// .agentic/).
func Discover(cwd string) (*Workspace, error) {
	path, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	for {
		agenticDir := filepath.Join(path, AgenticDirName)
		if info, err := os.Stat(agenticDir); err == nil && info.IsDir() {
			version, err := readFormatVersion(agenticDir)
			if err != nil {
				return nil, err
			}
			if version > FormatVersion {
				return nil, errclass.ErrFormatUnsupported.WithMessagef(
					"format version %d > supported %d", version, FormatVersion)
			}
			workspaceID, _ := readWorkspaceID(agenticDir)
			return &Workspace{
				Root:          path,
				FormatVersion: version,
				WorkspaceID:   workspaceID,
			}, nil
		}

		parent := filepath.Dir(path)
		if parent == path {
			return nil, fmt.Errorf("no agentic workspace found (no .agentic/ in parent directories)")
		}
		path = parent
	}
}

// PreviewDir returns the sandbox directory holding a session's staged files,
// mirroring the project's relative path structure.
func (w *Workspace) PreviewDir(sessionID model.SessionID) string {
	return filepath.Join(w.Root, AgenticDirName, "preview", string(sessionID))
}

// SessionDir returns the control directory for a session (manifest, decisions,
// objects).
func (w *Workspace) SessionDir(sessionID model.SessionID) string {
	return filepath.Join(w.Root, AgenticDirName, "sessions", string(sessionID))
}

// SessionsDir returns the parent directory of all session control dirs.
func (w *Workspace) SessionsDir() string {
	return filepath.Join(w.Root, AgenticDirName, "sessions")
}

// AuditLogPath returns the workspace audit log location.
func (w *Workspace) AuditLogPath() string {
	return filepath.Join(w.Root, AgenticDirName, "audit", "audit.jsonl")
}

func readFormatVersion(agenticDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(agenticDir, FormatVersionFile))
	if err != nil {
		return 0, fmt.Errorf("read format_version: %w", err)
	}
	var version int
	if _, err := fmt.Sscanf(string(data), "%d", &version); err != nil {
		return 0, fmt.Errorf("parse format_version: %w", err)
	}
	return version, nil
}

func readWorkspaceID(agenticDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(agenticDir, WorkspaceIDFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
