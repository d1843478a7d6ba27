// Package color renders ANSI-colored output for the pipeline CLI. It honors
// the NO_COLOR convention (https://no-color.org/) and degrades to plain text
// on dumb terminals.
package color

import (
	"fmt"
	"os"
	"sync"
)

// ANSI escape codes
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	DimCode = "\033[2m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
)

var (
	mu       sync.Mutex
	initOnce sync.Once
	enabled  bool
)

// Init resolves whether escape codes are emitted. NO_COLOR, TERM=dumb and
// an explicit flag all force plain output. The first call wins; later calls
// keep its result.
func Init(noColorFlag bool) {
	initOnce.Do(func() {
		_, noColorEnv := os.LookupEnv("NO_COLOR")
		dumb := os.Getenv("TERM") == "dumb"
		mu.Lock()
		enabled = !noColorEnv && !dumb && !noColorFlag
		mu.Unlock()
	})
}

// Enabled reports whether color output is active.
func Enabled() bool {
	Init(false)
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Enable forces color output on regardless of the environment.
func Enable() {
	Init(false)
	mu.Lock()
	enabled = true
	mu.Unlock()
}

// Disable forces plain output.
func Disable() {
	Init(false)
	mu.Lock()
	enabled = false
	mu.Unlock()
}

// wrap surrounds s with code when color is active.
func wrap(code, s string) string {
	if !Enabled() {
		return s
	}
	return code + s + Reset
}

// Success renders confirmation lines in green.
func Success(s string) string { return wrap(Green, s) }

// Successf is Success with printf-style formatting.
func Successf(format string, args ...any) string {
	return wrap(Green, fmt.Sprintf(format, args...))
}

// Error renders failures in red.
func Error(s string) string { return wrap(Red, s) }

// Errorf is Error with printf-style formatting.
func Errorf(format string, args ...any) string {
	return wrap(Red, fmt.Sprintf(format, args...))
}

// Warning renders cautions in yellow.
func Warning(s string) string { return wrap(Yellow, s) }

// Warningf is Warning with printf-style formatting.
func Warningf(format string, args ...any) string {
	return wrap(Yellow, fmt.Sprintf(format, args...))
}

// Info renders informational text in cyan.
func Info(s string) string { return wrap(Cyan, s) }

// Infof is Info with printf-style formatting.
func Infof(format string, args ...any) string {
	return wrap(Cyan, fmt.Sprintf(format, args...))
}

// SessionID renders session identifiers in cyan so they stand out in
// mixed command output.
func SessionID(s string) string { return wrap(Cyan, s) }

// Path renders staged file paths in blue.
func Path(s string) string { return wrap(Blue, s) }

// Header renders section headers in bold.
func Header(s string) string { return wrap(Bold, s) }

// Dim renders secondary detail dimmed.
func Dim(s string) string { return wrap(DimCode, s) }

// Highlight renders important values in yellow.
func Highlight(s string) string { return wrap(Yellow, s) }

// Code renders commands the user is expected to copy and run.
func Code(s string) string { return wrap(Bold+DimCode, s) }
