//go:build windows

package fsutil

import "os"

// Flock is a no-op on Windows; callers hold an in-process mutex, which is
// the only exclusion needed for a single-operator workspace.
func Flock(_ *os.File) error { return nil }

// Funlock is a no-op on Windows.
func Funlock(_ *os.File) error { return nil }
