//go:build !windows

package fsutil

import (
	"os"
	"syscall"
)

// Flock takes an exclusive advisory lock on the open file, blocking until
// the lock is available.
func Flock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

// Funlock releases a lock taken with Flock.
func Funlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
