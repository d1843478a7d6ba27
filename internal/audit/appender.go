// Package audit implements the append-only, hash-chained audit log.
//
// Every state mutation in the pipeline (stage, decision, apply, failure)
// appends exactly one record before reporting success to its caller. Records
// carry a strictly monotonic, gapless sequence number and the hash of the
// previous record, so silent truncation or tampering is detectable by Verify.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agentic-project/agentic/pkg/errclass"
	"github.com/agentic-project/agentic/pkg/fsutil"
	"github.com/agentic-project/agentic/pkg/jsonutil"
	"github.com/agentic-project/agentic/pkg/model"
)

// FileAppender appends audit records to a JSONL file with hash chain.
type FileAppender struct {
	path string
	mu   sync.Mutex
}

// NewFileAppender creates a new FileAppender.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path}
}

// Path returns the audit log location.
func (a *FileAppender) Path() string {
	return a.path
}

// Append adds a new audit record to the log and returns its sequence number.
func (a *FileAppender) Append(actor string, kind model.AuditEventKind, sessionID model.SessionID, path string, details map[string]any) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return 0, fmt.Errorf("create audit dir: %w", err)
	}

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return 0, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	// Exclusive flock serializes appends across processes
	if err := fsutil.Flock(file); err != nil {
		return 0, fmt.Errorf("flock audit log: %w", err)
	}
	defer fsutil.Funlock(file)

	prevSeq, prevHash, err := a.lastRecordLocked(file)
	if err != nil {
		return 0, fmt.Errorf("read last record: %w", err)
	}

	record := &model.AuditRecord{
		Seq:       prevSeq + 1,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		EventKind: kind,
		SessionID: sessionID,
		Path:      path,
		Details:   details,
		PrevHash:  prevHash,
	}

	if len(details) > 0 {
		payloadHash, err := hashPayload(details)
		if err != nil {
			return 0, fmt.Errorf("hash payload: %w", err)
		}
		record.PayloadHash = payloadHash
	}

	recordHash, err := computeRecordHash(record)
	if err != nil {
		return 0, fmt.Errorf("compute record hash: %w", err)
	}
	record.RecordHash = recordHash

	line, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("marshal audit record: %w", err)
	}

	// Seek to end and append
	if _, err := file.Seek(0, 2); err != nil {
		return 0, fmt.Errorf("seek to end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return 0, fmt.Errorf("write audit record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return 0, fmt.Errorf("sync audit log: %w", err)
	}

	return record.Seq, nil
}

// ReadAll returns every record in the log in file order. Records for a
// specific session can be selected with sessionID; pass "" for all.
func (a *FileAppender) ReadAll(sessionID model.SessionID) ([]*model.AuditRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var records []*model.AuditRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var record model.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue // skip malformed lines; Verify reports them
		}
		if sessionID != "" && record.SessionID != sessionID {
			continue
		}
		records = append(records, &record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}

	return records, nil
}

func (a *FileAppender) lastRecordLocked(file *os.File) (uint64, model.HashValue, error) {
	if _, err := file.Seek(0, 0); err != nil {
		return 0, "", fmt.Errorf("seek to start: %w", err)
	}

	var lastSeq uint64
	var lastHash model.HashValue
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var record model.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			// Appending past a malformed line would chain onto a lie
			return 0, "", errclass.ErrAuditChainBroken.WithMessagef("unparseable record after seq %d", lastSeq)
		}
		lastSeq = record.Seq
		lastHash = record.RecordHash
	}
	if err := scanner.Err(); err != nil {
		return 0, "", fmt.Errorf("scan audit log: %w", err)
	}

	return lastSeq, lastHash, nil
}

func hashPayload(details map[string]any) (model.HashValue, error) {
	data, err := jsonutil.CanonicalMarshal(details)
	if err != nil {
		return "", fmt.Errorf("canonical marshal details: %w", err)
	}
	hash := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(hash[:])), nil
}

func computeRecordHash(record *model.AuditRecord) (model.HashValue, error) {
	// Copy without RecordHash for hash computation
	hashRecord := &model.AuditRecord{
		Seq:         record.Seq,
		Timestamp:   record.Timestamp,
		Actor:       record.Actor,
		EventKind:   record.EventKind,
		SessionID:   record.SessionID,
		Path:        record.Path,
		Details:     record.Details,
		PayloadHash: record.PayloadHash,
		PrevHash:    record.PrevHash,
		// RecordHash intentionally omitted
	}

	data, err := jsonutil.CanonicalMarshal(hashRecord)
	if err != nil {
		return "", fmt.Errorf("canonical marshal: %w", err)
	}

	hash := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(hash[:])), nil
}
