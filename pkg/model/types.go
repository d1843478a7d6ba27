package model

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string

// Short returns the first 12 hex characters for display.
func (h HashValue) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ApprovalState is the review state of a staged artifact.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// ConflictClass classifies a staged artifact against the live project file.
type ConflictClass string

const (
	ConflictNew       ConflictClass = "new"
	ConflictIdentical ConflictClass = "identical"
	ConflictDiverged  ConflictClass = "diverged"
)

// ApplyOutcome is the per-artifact result of an apply run.
type ApplyOutcome string

const (
	OutcomeApplied                ApplyOutcome = "applied"
	OutcomeSkippedNotApproved     ApplyOutcome = "skipped_not_approved"
	OutcomeSkippedReapplyConflict ApplyOutcome = "skipped_reapply_conflict"
	OutcomeFailedIO               ApplyOutcome = "failed_io"
)

// SessionStatus is the lifecycle state of a generation session.
type SessionStatus string

const (
	SessionOpen      SessionStatus = "open"
	SessionClosed    SessionStatus = "closed"
	SessionDiscarded SessionStatus = "discarded"
)

// DecisionScope records whether an approval decision covered one artifact
// or the whole session.
type DecisionScope string

const (
	ScopeArtifact DecisionScope = "artifact"
	ScopeSession  DecisionScope = "session"
)
