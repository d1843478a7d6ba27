package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// SessionID is the unique identifier for a generation session: <unix_ms>-<rand8hex>
type SessionID string

// NewSessionID generates a new unique session ID.
func NewSessionID() SessionID {
	ts := time.Now().UnixMilli()
	var randBytes [4]byte
	if _, err := rand.Read(randBytes[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return SessionID(fmt.Sprintf("%013d-%s", ts, hex.EncodeToString(randBytes[:])))
}

// ShortID returns the first 8 characters for display.
func (id SessionID) ShortID() string {
	s := string(id)
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

// String returns the full session ID as string.
func (id SessionID) String() string {
	return string(id)
}

// SessionRecord is the on-disk session metadata (session.json).
type SessionRecord struct {
	SessionID SessionID     `json:"session_id"`
	CreatedAt time.Time     `json:"created_at"`
	Status    SessionStatus `json:"status"`
	Note      string        `json:"note,omitempty"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
}

// IsOpen reports whether the session still accepts staging and apply.
func (s *SessionRecord) IsOpen() bool {
	return s.Status == SessionOpen
}
