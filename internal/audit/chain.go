package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentic-project/agentic/pkg/model"
)

// VerifyResult reports the outcome of a hash-chain verification.
type VerifyResult struct {
	OK        bool   `json:"ok"`
	Records   int    `json:"records"`
	CorruptAt uint64 `json:"corrupt_at,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Verify recomputes the hash chain over the whole log and reports the first
// broken link. It is a diagnostic, not a preventive control: corruption is
// never auto-repaired.
func (a *FileAppender) Verify() (*VerifyResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &VerifyResult{OK: true}, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	result := &VerifyResult{OK: true}
	var prevSeq uint64
	var prevHash model.HashValue

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var record model.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return corrupt(result, prevSeq+1, "malformed record"), nil
		}

		if record.Seq != prevSeq+1 {
			return corrupt(result, record.Seq, fmt.Sprintf("sequence gap: expected %d, got %d", prevSeq+1, record.Seq)), nil
		}
		if record.PrevHash != prevHash {
			return corrupt(result, record.Seq, "previous-record hash mismatch"), nil
		}

		recomputed, err := computeRecordHash(&record)
		if err != nil {
			return nil, fmt.Errorf("recompute record hash: %w", err)
		}
		if recomputed != record.RecordHash {
			return corrupt(result, record.Seq, "record hash mismatch"), nil
		}

		result.Records++
		prevSeq = record.Seq
		prevHash = record.RecordHash
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}

	return result, nil
}

func corrupt(result *VerifyResult, seq uint64, reason string) *VerifyResult {
	result.OK = false
	result.CorruptAt = seq
	result.Reason = reason
	return result
}
