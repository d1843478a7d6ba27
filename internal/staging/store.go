// Package staging implements the isolated preview area for proposed writes.
//
// Staged content never touches the live project tree. Each session gets a
// preview directory mirroring the project's relative structure (inspectable
// with ordinary file tools) plus an append-only manifest recording every
// version ever staged. Artifacts are immutable: re-staging a path appends a
// new version, it never mutates in place.
package staging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/agentic-project/agentic/internal/audit"
	"github.com/agentic-project/agentic/internal/integrity"
	"github.com/agentic-project/agentic/internal/session"
	"github.com/agentic-project/agentic/internal/workspace"
	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/fsutil"
	"github.com/agentic-project/agentic/pkg/model"
	"github.com/agentic-project/agentic/pkg/pathutil"
)

// Store writes and reads staged artifacts for sessions.
//
// Mutations serialize on an in-process mutex plus an exclusive flock on the
// session manifest, so concurrent stagings of the same path always mint
// distinct versions.
type Store struct {
	ws       *workspace.Workspace
	sessions *session.Manager
	audit    *audit.FileAppender
	mu       sync.Mutex
}

// NewStore creates a new staging store.
func NewStore(ws *workspace.Workspace, sessions *session.Manager, appender *audit.FileAppender) *Store {
	return &Store{ws: ws, sessions: sessions, audit: appender}
}

// Stats summarizes a session's staged content.
type Stats struct {
	SessionID  model.SessionID `json:"session_id"`
	Artifacts  int             `json:"artifacts"`
	TotalBytes int64           `json:"total_bytes"`
	PreviewDir string          `json:"preview_dir"`
}

// Stage validates relPath against the sandbox root and durably writes content
// as a new artifact version. Path traversal attempts are rejected and audited;
// no write occurs for them.
func (s *Store) Stage(actor string, sessionID model.SessionID, relPath string, content []byte, origin string) (*model.StagedArtifact, error) {
	if _, err := s.sessions.RequireOpen(sessionID); err != nil {
		return nil, err
	}

	previewPath, err := pathutil.SafeJoin(s.ws.PreviewDir(sessionID), relPath)
	if err != nil {
		// The rejected attempt itself is audit-worthy
		if _, aerr := s.audit.Append(actor, model.EventStageRejected, sessionID, relPath, map[string]any{"error": err.Error()}); aerr != nil {
			return nil, fmt.Errorf("audit stage rejection (%v): %w", err, aerr)
		}
		return nil, err
	}

	hash := integrity.ContentHash(content)

	var artifact *model.StagedArtifact
	s.mu.Lock()
	err = s.withManifestLock(sessionID, func() error {
		version, err := s.nextVersion(sessionID, relPath)
		if err != nil {
			return err
		}

		artifact = &model.StagedArtifact{
			Path:        filepath.ToSlash(relPath),
			Version:     version,
			ContentHash: hash,
			Size:        int64(len(content)),
			Origin:      origin,
			StagedAt:    time.Now().UTC(),
		}

		// Content by hash first: prior versions stay retrievable after
		// the preview mirror is overwritten.
		objectPath := s.objectPath(sessionID, hash)
		if err := fsutil.AtomicWrite(objectPath, content, 0644); err != nil {
			return fmt.Errorf("write object: %w", err)
		}

		// Preview mirror (latest version wins)
		if err := os.MkdirAll(filepath.Dir(previewPath), 0755); err != nil {
			return fmt.Errorf("create preview dir: %w", err)
		}
		if err := fsutil.AtomicWrite(previewPath, content, 0644); err != nil {
			return fmt.Errorf("write preview file: %w", err)
		}

		// Manifest line last: an artifact exists once its record is durable
		return s.appendManifest(sessionID, artifact)
	})
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Append(actor, model.EventStaged, sessionID, artifact.Path, map[string]any{
		"hash":    string(hash),
		"version": artifact.Version,
		"origin":  origin,
		"size":    artifact.Size,
	}); err != nil {
		return nil, fmt.Errorf("audit stage: %w", err)
	}

	return artifact, nil
}

// List returns the latest version of every staged artifact in the session,
// sorted lexicographically by path. Removed artifacts are excluded.
func (s *Store) List(sessionID model.SessionID) ([]*model.StagedArtifact, error) {
	latest, err := s.latestByPath(sessionID)
	if err != nil {
		return nil, err
	}

	artifacts := make([]*model.StagedArtifact, 0, len(latest))
	for _, a := range latest {
		if a.Removed {
			continue
		}
		artifacts = append(artifacts, a)
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
	return artifacts, nil
}

// Get returns the latest staged artifact for relPath.
func (s *Store) Get(sessionID model.SessionID, relPath string) (*model.StagedArtifact, error) {
	latest, err := s.latestByPath(sessionID)
	if err != nil {
		return nil, err
	}
	a, ok := latest[filepath.ToSlash(relPath)]
	if !ok || a.Removed {
		return nil, errclass.ErrUnknownArtifact.WithMessagef("never staged in session %s: %s", sessionID.ShortID(), relPath)
	}
	return a, nil
}

// History returns every staged version of relPath in staging order.
func (s *Store) History(sessionID model.SessionID, relPath string) ([]*model.StagedArtifact, error) {
	records, err := s.readManifest(sessionID)
	if err != nil {
		return nil, err
	}
	want := filepath.ToSlash(relPath)
	var versions []*model.StagedArtifact
	for _, rec := range records {
		if rec.Path == want {
			versions = append(versions, rec)
		}
	}
	if len(versions) == 0 {
		return nil, errclass.ErrUnknownArtifact.WithMessagef("never staged in session %s: %s", sessionID.ShortID(), relPath)
	}
	return versions, nil
}

// Manifest returns every manifest record of the session in staging order,
// tombstones included.
func (s *Store) Manifest(sessionID model.SessionID) ([]*model.StagedArtifact, error) {
	return s.readManifest(sessionID)
}

// Read returns the latest staged content for relPath.
func (s *Store) Read(sessionID model.SessionID, relPath string) ([]byte, error) {
	artifact, err := s.Get(sessionID, relPath)
	if err != nil {
		return nil, err
	}
	return s.ReadVersion(sessionID, artifact)
}

// ReadVersion returns the content of a specific artifact version via its
// content hash.
func (s *Store) ReadVersion(sessionID model.SessionID, artifact *model.StagedArtifact) ([]byte, error) {
	data, err := os.ReadFile(s.objectPath(sessionID, artifact.ContentHash))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", artifact.ContentHash, err)
	}
	return data, nil
}

// Remove withdraws relPath from the session: the preview mirror entry is
// deleted and a tombstone version is appended. Prior versions remain
// retrievable.
func (s *Store) Remove(actor string, sessionID model.SessionID, relPath string) error {
	if _, err := s.sessions.RequireOpen(sessionID); err != nil {
		return err
	}
	previewPath, err := pathutil.SafeJoin(s.ws.PreviewDir(sessionID), relPath)
	if err != nil {
		return err
	}

	var artifact *model.StagedArtifact
	s.mu.Lock()
	err = s.withManifestLock(sessionID, func() error {
		artifact, err = s.Get(sessionID, relPath)
		if err != nil {
			return err
		}

		if err := os.Remove(previewPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove preview file: %w", err)
		}
		s.pruneEmptyParents(filepath.Dir(previewPath), s.ws.PreviewDir(sessionID))

		tombstone := &model.StagedArtifact{
			Path:        artifact.Path,
			Version:     artifact.Version + 1,
			ContentHash: artifact.ContentHash,
			Origin:      actor,
			StagedAt:    time.Now().UTC(),
			Removed:     true,
		}
		return s.appendManifest(sessionID, tombstone)
	})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := s.audit.Append(actor, model.EventUnstaged, sessionID, artifact.Path, nil); err != nil {
		return fmt.Errorf("audit unstage: %w", err)
	}
	return nil
}

// Stats returns summary statistics for a session's preview area.
func (s *Store) Stats(sessionID model.SessionID) (*Stats, error) {
	artifacts, err := s.List(sessionID)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		SessionID:  sessionID,
		Artifacts:  len(artifacts),
		PreviewDir: s.ws.PreviewDir(sessionID),
	}
	for _, a := range artifacts {
		st.TotalBytes += a.Size
	}
	return st, nil
}

func (s *Store) manifestPath(sessionID model.SessionID) string {
	return filepath.Join(s.ws.SessionDir(sessionID), "manifest.jsonl")
}

func (s *Store) objectPath(sessionID model.SessionID, hash model.HashValue) string {
	return filepath.Join(s.ws.SessionDir(sessionID), "objects", string(hash))
}

// withManifestLock runs fn holding an exclusive flock on the session
// manifest. Other processes staging into the same session block on the
// same lock, so version numbers never collide.
func (s *Store) withManifestLock(sessionID model.SessionID, fn func() error) error {
	path := s.manifestPath(sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()
	if err := fsutil.Flock(file); err != nil {
		return fmt.Errorf("flock manifest: %w", err)
	}
	defer fsutil.Funlock(file)
	return fn()
}

func (s *Store) appendManifest(sessionID model.SessionID, artifact *model.StagedArtifact) error {
	line, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal manifest record: %w", err)
	}
	if err := fsutil.AppendLineSync(s.manifestPath(sessionID), line, 0644); err != nil {
		return fmt.Errorf("append manifest: %w", err)
	}
	return nil
}

func (s *Store) readManifest(sessionID model.SessionID) ([]*model.StagedArtifact, error) {
	file, err := os.Open(s.manifestPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	var records []*model.StagedArtifact
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec model.StagedArtifact
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, errclass.ErrManifestCorrupt.WithMessagef("parse manifest line: %v", err)
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return records, nil
}

func (s *Store) latestByPath(sessionID model.SessionID) (map[string]*model.StagedArtifact, error) {
	records, err := s.readManifest(sessionID)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]*model.StagedArtifact, len(records))
	for _, rec := range records {
		if prev, ok := latest[rec.Path]; !ok || rec.Version >= prev.Version {
			latest[rec.Path] = rec
		}
	}
	return latest, nil
}

func (s *Store) nextVersion(sessionID model.SessionID, relPath string) (int, error) {
	latest, err := s.latestByPath(sessionID)
	if err != nil {
		return 0, err
	}
	if prev, ok := latest[filepath.ToSlash(relPath)]; ok {
		return prev.Version + 1, nil
	}
	return 1, nil
}

func (s *Store) pruneEmptyParents(dir, stop string) {
	for dir != stop {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
