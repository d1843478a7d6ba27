// Package uuidutil generates opaque unique tokens for sessions and lock holders.
package uuidutil

import "github.com/google/uuid"

// NewV4 generates a random UUID v4 string.
func NewV4() string {
	return uuid.NewString()
}

// Short returns the first 8 characters of a fresh UUID v4, for compact
// display tokens.
func Short() string {
	return uuid.NewString()[:8]
}
