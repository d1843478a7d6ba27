package model

import "time"

// AuditEventKind identifies the type of auditable event.
type AuditEventKind string

const (
	EventSessionOpen    AuditEventKind = "session_open"
	EventSessionClose   AuditEventKind = "session_close"
	EventSessionDiscard AuditEventKind = "session_discard"
	EventStaged         AuditEventKind = "staged"
	EventStageRejected  AuditEventKind = "stage_rejected"
	EventUnstaged       AuditEventKind = "unstaged"
	EventDecision       AuditEventKind = "decision"
	EventApplied        AuditEventKind = "applied"
	EventApplyFailed    AuditEventKind = "apply_failed"
	EventApplySkipped   AuditEventKind = "apply_skipped"
)

// AuditRecord is a single line in the audit log (JSONL format).
// Seq is strictly monotonic and gapless; PrevHash chains each record to its
// predecessor so truncation or edits are detectable after the fact.
type AuditRecord struct {
	Seq         uint64         `json:"seq"`
	Timestamp   time.Time      `json:"timestamp"`
	Actor       string         `json:"actor"`
	EventKind   AuditEventKind `json:"event_kind"`
	SessionID   SessionID      `json:"session_id,omitempty"`
	Path        string         `json:"path,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	PayloadHash HashValue      `json:"payload_hash,omitempty"`
	PrevHash    HashValue      `json:"prev_hash"`
	RecordHash  HashValue      `json:"record_hash"`
}
