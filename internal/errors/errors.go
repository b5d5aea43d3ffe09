package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/restreak/internal/logger"
)

// Kind classifies failures crossing the engine boundary.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound means the habit (or document) is absent from the current snapshot.
	KindNotFound
	// KindWriteRejected means the store declined a mutation. Callers may retry.
	KindWriteRejected
	// KindInvariantViolation marks a guard that was clamped locally. Never returned to callers.
	KindInvariantViolation
	// KindInvalidInput marks a command rejected before reaching the store.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindWriteRejected:
		return "write_rejected"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is a typed failure carrying the operation and resource it concerns.
type Error struct {
	Kind     Kind
	Op       string
	Resource string
	ID       string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	switch e.Kind {
	case KindNotFound:
		msg = fmt.Sprintf("%s %q not found", e.Resource, e.ID)
	case KindWriteRejected:
		msg = fmt.Sprintf("write to %s %q rejected", e.Resource, e.ID)
	case KindInvalidInput:
		msg = fmt.Sprintf("invalid %s", e.Resource)
	case KindInvariantViolation:
		msg = fmt.Sprintf("invariant violated on %s %q", e.Resource, e.ID)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of resource or id.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Resource == "" && t.ID == ""
}

var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrWriteRejected = &Error{Kind: KindWriteRejected}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
)

// NotFound reports that resource id does not exist in the current snapshot.
func NotFound(op, resource, id string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Resource: resource, ID: id, Err: err}
}

// WriteRejected reports that the store declined a mutation.
func WriteRejected(op, resource, id string, err error) *Error {
	return &Error{Kind: KindWriteRejected, Op: op, Resource: resource, ID: id, Err: err}
}

// Invalid reports a command rejected by input validation.
func Invalid(op, what string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Resource: what, Err: err}
}

// Invariant builds an invariant violation. These are logged and clamped, never returned.
func Invariant(op, resource, id string, err error) *Error {
	return &Error{Kind: KindInvariantViolation, Op: op, Resource: resource, ID: id, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsWriteRejected(err error) bool { return KindOf(err) == KindWriteRejected }
func IsInvalidInput(err error) bool  { return KindOf(err) == KindInvalidInput }

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err, "kind", KindOf(err).String())
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
