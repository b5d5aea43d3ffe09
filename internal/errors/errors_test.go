package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "simple error", err: stderrors.New("something went wrong"), expected: "Error: something went wrong"},
		{
			name:     "typed not found",
			err:      NotFound("toggle", "habit", "h1", nil),
			expected: `Error: toggle: habit "h1" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.err); got != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	if got := Formatf("failed to load %s", "habits"); got != "Error: failed to load habits" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestKindMatching(t *testing.T) {
	cause := stderrors.New("permission denied")
	tests := []struct {
		name   string
		err    error
		target error
		kind   Kind
	}{
		{"not found", NotFound("delete", "habit", "h1", nil), ErrNotFound, KindNotFound},
		{"write rejected", WriteRejected("mutate", "habit", "h1", cause), ErrWriteRejected, KindWriteRejected},
		{"invalid", Invalid("create", "title", nil), ErrInvalidInput, KindInvalidInput},
		{"wrapped", fmt.Errorf("outer: %w", NotFound("toggle", "habit", "h2", nil)), ErrNotFound, KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !stderrors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.target)
			}
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestKindMismatch(t *testing.T) {
	err := NotFound("toggle", "habit", "h1", nil)
	if stderrors.Is(err, ErrWriteRejected) {
		t.Error("NotFound should not match ErrWriteRejected")
	}
	if IsWriteRejected(err) {
		t.Error("IsWriteRejected() = true for a not-found error")
	}
	if KindOf(stderrors.New("plain")) != KindUnknown {
		t.Error("plain errors should have KindUnknown")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := stderrors.New("network down")
	err := WriteRejected("mutate", "habit", "h1", cause)
	if !stderrors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	want := `mutate: write to habit "h1" rejected: network down`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
