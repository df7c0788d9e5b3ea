package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_UnwrapsToKind(t *testing.T) {
	err := New(ErrNotFound, "note %s does not exist", "a.md")
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is should match the kind sentinel")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("errors.Is must not match other kinds")
	}
	if got := err.Error(); got != "not_found: note a.md does not exist" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNewRemote_CarriesStatus(t *testing.T) {
	err := NewRemote(ErrUnauthorized, 401, "API key rejected")
	if err.StatusCode != 401 {
		t.Errorf("status = %d", err.StatusCode)
	}
	if got := err.Error(); got != "unauthorized: API key rejected (status 401)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTag(t *testing.T) {
	cases := map[error]string{
		New(ErrInvalidPath, "x"):          "invalid_path",
		New(ErrConfirmationRequired, "x"): "confirmation_required",
		New(ErrTargetNotFound, "x"):       "target_not_found",
		New(ErrNoActiveFile, "x"):         "no_active_file",
		New(ErrRemoteUnavailable, "x"):    "remote_unavailable",
		fmt.Errorf("wrapped: %w", New(ErrTimeout, "x")): "timeout",
		errors.New("plain"): "internal",
	}
	for err, want := range cases {
		if got := Tag(err); got != want {
			t.Errorf("Tag(%v) = %q, want %q", err, got, want)
		}
	}
}
