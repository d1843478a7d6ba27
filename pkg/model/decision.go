package model

import "time"

// ApprovalDecision is one line in a session's decisions log (JSONL format).
// A later decision for the same path supersedes but does not erase the prior
// record.
type ApprovalDecision struct {
	Path            string        `json:"path"`
	Decision        ApprovalState `json:"decision"`
	Actor           string        `json:"actor"`
	DecidedAt       time.Time     `json:"decided_at"`
	Scope           DecisionScope `json:"scope"`
	ArtifactVersion int           `json:"artifact_version"`
	ArtifactHash    HashValue     `json:"artifact_hash"`
	// BaselineHash is the live file's hash observed at decision time; empty
	// when no live file existed. Apply refuses to overwrite a live file whose
	// current hash differs from this baseline.
	BaselineHash HashValue `json:"baseline_hash,omitempty"`
}
