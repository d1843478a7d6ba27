// Package template expands {placeholder} tokens in session notes and
// generated file content.
package template

import (
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Built-in placeholders are evaluated lazily; a note without {user} never
// performs a user lookup.
var builtins = map[string]func() string{
	"date":     func() string { return time.Now().Format("2006-01-02") },
	"time":     func() string { return time.Now().Format("15:04:05") },
	"datetime": func() string { return time.Now().Format("2006-01-02 15:04:05") },
	"iso8601":  func() string { return time.Now().Format(time.RFC3339) },
	"unix":     func() string { return strconv.FormatInt(time.Now().Unix(), 10) },
	"user":     currentUser,
	"hostname": shortHostname,
	"arch":     func() string { return runtime.GOARCH },
}

// Expand replaces {name} tokens in text. Entries in vars take precedence
// over the built-ins, so callers can pin {date} in tests or inject their
// own tokens. Unknown tokens pass through untouched.
func Expand(text string, vars map[string]string) string {
	if !strings.Contains(text, "{") {
		return text
	}

	result := text
	for name, value := range vars {
		result = strings.ReplaceAll(result, "{"+name+"}", value)
	}
	for name, fn := range builtins {
		token := "{" + name + "}"
		if strings.Contains(result, token) {
			result = strings.ReplaceAll(result, token, fn())
		}
	}
	return result
}

// ExpandNote expands the built-in placeholders in a session note.
func ExpandNote(note string) string {
	return Expand(note, nil)
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

func shortHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host, _, _ := strings.Cut(h, ".")
	return host
}
