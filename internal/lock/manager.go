// Package lock implements the project-level advisory apply lock.
//
// Exactly one apply may run against a project at a time. The lock is a
// lease: a crashed holder's lock expires after the TTL and can be stolen
// with an incremented fencing token. Tokens are monotonic across the whole
// workspace lifetime, not just one lock file: the last issued token
// persists beside the lock, so a stale holder from before a steal or a
// release can never validate again.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/fsutil"
	"github.com/agentic-project/agentic/pkg/model"
	"github.com/agentic-project/agentic/pkg/uuidutil"
)

// Manager handles apply lock operations for one workspace.
type Manager struct {
	workspaceRoot string
	policy        model.LockPolicy
	mu            sync.Mutex
}

// NewManager creates a new lock manager.
func NewManager(workspaceRoot string, policy model.LockPolicy) *Manager {
	if policy.LeaseTTL <= 0 {
		policy.LeaseTTL = 5 * time.Minute
	}
	return &Manager{
		workspaceRoot: workspaceRoot,
		policy:        policy,
	}
}

// Acquire attempts to acquire the exclusive apply lock.
// A second acquire while the lock is held fails fast with E_CONCURRENT_APPLY.
func (m *Manager) Acquire(sessionID model.SessionID, purpose string) (*model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lockPath := m.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	// O_CREAT|O_EXCL for atomic acquire
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			rec, readErr := m.readLock(lockPath)
			if readErr != nil {
				return nil, fmt.Errorf("read existing lock: %w", readErr)
			}
			if rec.IsExpired(time.Now()) {
				return nil, errclass.ErrConcurrentApply.WithMessage("apply lock exists but lease expired, use steal")
			}
			return nil, errclass.ErrConcurrentApply.WithMessagef("another apply holds the lock (session %s)", rec.SessionID)
		}
		return nil, fmt.Errorf("create lock: %w", err)
	}
	defer file.Close()

	now := time.Now().UTC()
	token := m.lastToken() + 1
	rec := &model.LockRecord{
		HolderNonce:  uuidutil.NewV4(),
		SessionID:    sessionID,
		AcquiredAt:   now,
		ExpiresAt:    now.Add(m.policy.LeaseTTL),
		FencingToken: token,
		Purpose:      purpose,
	}

	if err := m.writeLock(file, rec); err != nil {
		os.Remove(lockPath)
		return nil, err
	}
	if err := m.saveToken(token); err != nil {
		os.Remove(lockPath)
		return nil, err
	}

	return rec, nil
}

// Steal acquires the lock after the previous holder's lease expired.
func (m *Manager) Steal(sessionID model.SessionID, purpose string) (*model.LockRecord, error) {
	m.mu.Lock()
	lockPath := m.lockPath()
	rec, err := m.readLock(lockPath)
	if err != nil {
		m.mu.Unlock()
		if os.IsNotExist(err) {
			// No lock exists, use regular acquire
			return m.Acquire(sessionID, purpose)
		}
		return nil, fmt.Errorf("read lock: %w", err)
	}
	defer m.mu.Unlock()

	if !rec.IsExpired(time.Now()) {
		return nil, errclass.ErrConcurrentApply.WithMessage("apply lock lease has not expired yet")
	}

	token := rec.FencingToken + 1
	if last := m.lastToken(); last >= token {
		token = last + 1
	}

	now := time.Now().UTC()
	newRec := &model.LockRecord{
		HolderNonce:  uuidutil.NewV4(),
		SessionID:    sessionID,
		AcquiredAt:   now,
		ExpiresAt:    now.Add(m.policy.LeaseTTL),
		FencingToken: token,
		Purpose:      purpose,
	}

	if err := m.updateLock(lockPath, newRec); err != nil {
		return nil, fmt.Errorf("steal lock: %w", err)
	}
	if err := m.saveToken(token); err != nil {
		return nil, err
	}

	return newRec, nil
}

// Release frees the lock.
func (m *Manager) Release(holderNonce string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lockPath := m.lockPath()
	rec, err := m.readLock(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // already released
		}
		return fmt.Errorf("read lock: %w", err)
	}

	if rec.HolderNonce != holderNonce {
		return errclass.ErrLockNotHeld.WithMessage("cannot release: nonce mismatch")
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock: %w", err)
	}

	return nil
}

// ValidateFencing checks if the provided fencing token matches the current lock.
func (m *Manager) ValidateFencing(token int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.readLock(m.lockPath())
	if err != nil {
		if os.IsNotExist(err) {
			return errclass.ErrLockNotHeld.WithMessage("no apply lock held")
		}
		return fmt.Errorf("read lock: %w", err)
	}

	if rec.IsExpired(time.Now()) {
		return errclass.ErrLockExpired.WithMessage("apply lock lease has expired")
	}

	if rec.FencingToken != token {
		return errclass.ErrFencingMismatch.WithMessagef(
			"expected token %d, got %d", rec.FencingToken, token)
	}

	return nil
}

// Status returns the current lock state.
func (m *Manager) Status() (model.LockState, *model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.readLock(m.lockPath())
	if err != nil {
		if os.IsNotExist(err) {
			return model.LockStateFree, nil, nil
		}
		return model.LockStateFree, nil, fmt.Errorf("read lock: %w", err)
	}

	if rec.IsExpired(time.Now()) {
		return model.LockStateExpired, rec, nil
	}
	return model.LockStateHeld, rec, nil
}

func (m *Manager) lockPath() string {
	return filepath.Join(m.workspaceRoot, ".agentic", "locks", "apply.json")
}

func (m *Manager) tokenPath() string {
	return filepath.Join(m.workspaceRoot, ".agentic", "locks", "fencing_token")
}

// lastToken returns the highest fencing token ever issued, or zero when
// none has been.
func (m *Manager) lastToken() int64 {
	data, err := os.ReadFile(m.tokenPath())
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (m *Manager) saveToken(token int64) error {
	return fsutil.AtomicWrite(m.tokenPath(), []byte(strconv.FormatInt(token, 10)), 0644)
}

func (m *Manager) readLock(path string) (*model.LockRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec model.LockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse lock: %w", err)
	}
	return &rec, nil
}

func (m *Manager) writeLock(file *os.File, rec *model.LockRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	return file.Sync()
}

func (m *Manager) updateLock(path string, rec *model.LockRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}
	return fsutil.AtomicWrite(path, data, 0644)
}
