package errclass

import "fmt"

// AgenticError is a stable, machine-readable error class.
type AgenticError struct {
	Code    string
	Message string
}

func (e *AgenticError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AgenticError) Is(target error) bool {
	t, ok := target.(*AgenticError)
	return ok && e.Code == t.Code
}

// WithMessage returns a new AgenticError with the same Code but a specific message.
func (e *AgenticError) WithMessage(msg string) *AgenticError {
	return &AgenticError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new AgenticError with a formatted message.
func (e *AgenticError) WithMessagef(format string, args ...any) *AgenticError {
	return &AgenticError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// All stable error classes for v0.x (13 total).
var (
	ErrNameInvalid       = &AgenticError{Code: "E_NAME_INVALID"}
	ErrPathTraversal     = &AgenticError{Code: "E_PATH_TRAVERSAL"}
	ErrUnknownArtifact   = &AgenticError{Code: "E_UNKNOWN_ARTIFACT"}
	ErrUnknownSession    = &AgenticError{Code: "E_UNKNOWN_SESSION"}
	ErrNotApproved       = &AgenticError{Code: "E_NOT_APPROVED"}
	ErrConcurrentApply   = &AgenticError{Code: "E_CONCURRENT_APPLY"}
	ErrLockExpired       = &AgenticError{Code: "E_LOCK_EXPIRED"}
	ErrLockNotHeld       = &AgenticError{Code: "E_LOCK_NOT_HELD"}
	ErrFencingMismatch   = &AgenticError{Code: "E_FENCING_MISMATCH"}
	ErrSessionClosed     = &AgenticError{Code: "E_SESSION_CLOSED"}
	ErrManifestCorrupt   = &AgenticError{Code: "E_MANIFEST_CORRUPT"}
	ErrAuditChainBroken  = &AgenticError{Code: "E_AUDIT_CHAIN_BROKEN"}
	ErrFormatUnsupported = &AgenticError{Code: "E_FORMAT_UNSUPPORTED"}
)
