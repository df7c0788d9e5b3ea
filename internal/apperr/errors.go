// Package apperr defines the error taxonomy surfaced to MCP callers.
// Transport failures never cross the client boundary raw; they are
// mapped onto exactly one of the sentinel kinds below.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNotFound             = errors.New("not found")
	ErrTargetNotFound       = errors.New("target not found")
	ErrNoActiveFile         = errors.New("no active file")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTimeout              = errors.New("timeout")
	ErrRemoteUnavailable    = errors.New("remote unavailable")
	ErrUnknownRemote        = errors.New("unknown remote error")
)

// Error couples a sentinel kind with a human-readable message and,
// for remote failures, the HTTP status code reported by the plugin.
type Error struct {
	Kind       error
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", kindTag(e.Kind), e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", kindTag(e.Kind), e.Message)
}

// Unwrap makes the error matchable with errors.Is against the sentinels.
func (e *Error) Unwrap() error { return e.Kind }

// New creates a tagged error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewRemote creates a tagged error carrying the remote status code.
func NewRemote(kind error, status int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), StatusCode: status}
}

// Tag returns the machine-readable kind tag for err, or "internal"
// when err does not carry one of the taxonomy kinds.
func Tag(err error) string {
	for _, kind := range []error{
		ErrInvalidPath,
		ErrConfirmationRequired,
		ErrNotFound,
		ErrTargetNotFound,
		ErrNoActiveFile,
		ErrUnauthorized,
		ErrTimeout,
		ErrRemoteUnavailable,
		ErrUnknownRemote,
	} {
		if errors.Is(err, kind) {
			return kindTag(kind)
		}
	}
	return "internal"
}

func kindTag(kind error) string {
	switch kind {
	case ErrInvalidPath:
		return "invalid_path"
	case ErrConfirmationRequired:
		return "confirmation_required"
	case ErrNotFound:
		return "not_found"
	case ErrTargetNotFound:
		return "target_not_found"
	case ErrNoActiveFile:
		return "no_active_file"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrTimeout:
		return "timeout"
	case ErrRemoteUnavailable:
		return "remote_unavailable"
	default:
		return "unknown_remote_error"
	}
}
