package model

import "time"

// LockRecord is stored at .agentic/locks/apply.json while an apply is in
// flight.
type LockRecord struct {
	HolderNonce  string    `json:"holder_nonce"`
	SessionID    SessionID `json:"session_id,omitempty"`
	AcquiredAt   time.Time `json:"acquired_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	FencingToken int64     `json:"fencing_token"`
	Purpose      string    `json:"purpose,omitempty"`
}

// IsExpired returns true if the lock lease has expired.
func (l *LockRecord) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// LockState represents the current state of the apply lock.
type LockState string

const (
	LockStateHeld    LockState = "held"
	LockStateExpired LockState = "expired"
	LockStateFree    LockState = "free"
)

// LockPolicy configures lock timing parameters.
type LockPolicy struct {
	LeaseTTL time.Duration `json:"lease_ttl"`
}
