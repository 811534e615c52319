package workflow

import (
	"errors"
	"fmt"
)

// GenerationError reports that a text-generation call failed inside an
// executor. The runtime treats it as terminal for the correlation; it never
// silently regenerates. Retryable distinguishes transient provider failures
// (timeouts, rate limits) from hard ones, so callers can decide whether to
// resubmit the turn.
type GenerationError struct {
	ExecutorID    string
	CorrelationID string
	Retryable     bool
	Err           error
}

// Error implements error.
func (e *GenerationError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("generation failed in %s (correlation %s, %s): %v",
		e.ExecutorID, e.CorrelationID, kind, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *GenerationError) Unwrap() error { return e.Err }

// ToolError reports a failed tool invocation. Primary recovers from it
// locally when the prompt can be answered without the tool result.
type ToolError struct {
	Tool string
	Err  error
}

// Error implements error.
func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying tool error.
func (e *ToolError) Unwrap() error { return e.Err }

// ProtocolViolationError reports a message that is malformed for the
// correlation's current state. It should never occur with correctly wired
// executors; the runtime fails the correlation fast rather than guessing.
type ProtocolViolationError struct {
	ExecutorID    string
	CorrelationID string
	State         string
	Msg           string
}

// Error implements error.
func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation in %s (correlation %s, state %s): %s",
		e.ExecutorID, e.CorrelationID, e.State, e.Msg)
}

// IsGenerationError reports whether err wraps a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
