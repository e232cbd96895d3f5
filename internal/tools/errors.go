package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a pipeline failure. Every stage converts internal failures
// into one of these kinds before returning; no unclassified error escapes.
type Kind string

const (
	// KindValidation - the configuration failed a declared constraint.
	// Surfaced before any side effect; never retried automatically.
	KindValidation Kind = "ValidationError"

	// KindRateLimit - admission denied. Carries a retry-after hint.
	KindRateLimit Kind = "RateLimitError"

	// KindExecution - the tool's execution failed. The underlying cause is
	// preserved as context, not re-raised raw.
	KindExecution Kind = "ExecutionError"

	// KindConfiguration - a required external dependency (for example a
	// missing credential) is absent. Fatal for the invocation, not retryable.
	KindConfiguration Kind = "ConfigurationError"

	// KindRecording - the metrics recorder failed to persist a record.
	// Logged internally; never surfaced to the caller.
	KindRecording Kind = "RecordingFailure"
)

// Error is the classified failure carried in a Result.
type Error struct {
	Kind    Kind
	Message string

	// RetryAfter hints when a rate-limited caller may try again.
	// Zero for every other kind.
	RetryAfter time.Duration

	cause error
}

// NewError creates a classified error without an underlying cause.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying cause. The cause remains reachable via
// errors.Is / errors.As through Unwrap.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Classify converts an arbitrary execution failure into an *Error.
// Errors that are already classified (a tool returning a
// ConfigurationError, for example) pass through unchanged; everything else
// becomes an ExecutionError wrapping the original cause.
func Classify(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return WrapError(KindExecution, err, "tool execution failed: %v", err)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// MarshalJSON emits the wire shape of the error: kind, message, and a
// retry_after hint in seconds when present.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind       Kind    `json:"kind"`
		Message    string  `json:"message"`
		RetryAfter float64 `json:"retry_after,omitempty"`
	}{
		Kind:       e.Kind,
		Message:    e.Message,
		RetryAfter: e.RetryAfter.Seconds(),
	}
	return json.Marshal(out)
}
