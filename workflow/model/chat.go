// Package model provides the LLM chat abstraction consumed by the workflow.
package model

import (
	"context"
	"errors"
	"strings"
)

// ChatModel is the interface for LLM chat providers.
//
// It abstracts the differences between providers (OpenAI, Anthropic, Google,
// local models) behind a single call. Implementations should:
//   - Handle provider-specific authentication and message formats
//   - Respect context cancellation and timeouts
//   - Translate provider errors so IsRetryable can classify them
type ChatModel interface {
	// Chat sends the conversation to the LLM and returns its reply.
	//
	// tools is the optional set of tool specifications the model may call
	// (nil when no tools are configured). The model may respond with text,
	// tool calls, or both.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is a single entry in an LLM conversation.
type Message struct {
	// Role identifies the sender. Use the Role* constants.
	Role string

	// Content is the message text. May be empty for tool-call-only turns.
	Content string
}

// Standard conversation roles, matching the conventions of the major providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the LLM may request to invoke.
//
// Schema follows JSON Schema and describes the expected input parameters.
type ToolSpec struct {
	// Name uniquely identifies the tool (alphanumeric + underscores).
	Name string

	// Description tells the LLM what the tool does and when to use it.
	Description string

	// Schema defines the input parameters in JSON Schema form.
	// Optional for tools with no parameters.
	Schema map[string]interface{}
}

// ChatOut is the output of one chat completion.
type ChatOut struct {
	// Text is the model's generated reply. May be empty if the model only
	// requested tool calls.
	Text string

	// ToolCalls lists tools the model wants invoked. Empty for direct
	// text responses.
	ToolCalls []ToolCall
}

// ToolCall is a request from the model to invoke a specific tool.
type ToolCall struct {
	// Name must match a ToolSpec.Name from the offered tools.
	Name string

	// Input holds the call arguments, shaped per the tool's Schema.
	// May be nil for parameterless tools.
	Input map[string]interface{}
}

// RateLimitError indicates the provider throttled the request.
//
// Rate limits are transient: IsRetryable reports true for them. Use
// errors.As to detect the type and errors.Unwrap for the provider error.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return e.Provider + ": rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a provider error is transient (timeout, rate
// limit, upstream unavailability) as opposed to a hard failure such as an
// invalid API key or malformed request.
//
// The runtime does not retry on its own; it carries this classification on
// the surfaced generation failure so callers can decide.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"rate limit",
		"too many requests",
		"connection refused",
		"connection reset",
		"temporarily unavailable",
		"service unavailable",
		"502",
		"503",
		"529",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
