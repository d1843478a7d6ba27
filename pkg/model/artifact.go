package model

import "time"

// StagedArtifact is one line in a session's manifest (JSONL format).
// Artifacts are immutable once written; re-staging the same path appends a
// new record with a higher version.
type StagedArtifact struct {
	Path        string    `json:"path"`
	Version     int       `json:"version"`
	ContentHash HashValue `json:"content_hash"`
	Size        int64     `json:"size"`
	Origin      string    `json:"origin,omitempty"`
	StagedAt    time.Time `json:"staged_at"`
	Removed     bool      `json:"removed,omitempty"`
}

// ConflictReport relates a staged artifact to the corresponding live file.
// It is derived on demand and never persisted.
type ConflictReport struct {
	Path       string        `json:"path"`
	Class      ConflictClass `json:"class"`
	StagedHash HashValue     `json:"staged_hash"`
	LiveHash   HashValue     `json:"live_hash,omitempty"`
	Diff       string        `json:"diff,omitempty"`
}
