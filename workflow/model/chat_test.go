package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit type", &RateLimitError{Provider: "openai", Err: errors.New("429")}, true},
		{"wrapped rate limit", fmt.Errorf("call failed: %w", &RateLimitError{Provider: "anthropic", Err: errors.New("throttled")}), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"timeout message", errors.New("dial tcp: i/o timeout"), true},
		{"too many requests", errors.New("HTTP 429 Too Many Requests"), true},
		{"service unavailable", errors.New("503 service unavailable"), true},
		{"overloaded", errors.New("status 529: overloaded"), true},
		{"bad api key", errors.New("invalid API key"), false},
		{"malformed request", errors.New("400 bad request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRateLimitError_Unwrap(t *testing.T) {
	inner := errors.New("throttled")
	err := &RateLimitError{Provider: "google", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Unwrap chain broken")
	}
	var rl *RateLimitError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &rl) {
		t.Error("errors.As failed through wrapping")
	}
}

func TestMockChatModel_Script(t *testing.T) {
	m := &MockChatModel{Responses: []ChatOut{{Text: "one"}, {Text: "two"}}}
	ctx := context.Background()

	out, err := m.Chat(ctx, []Message{{Role: RoleUser, Content: "a"}}, nil)
	if err != nil || out.Text != "one" {
		t.Errorf("first call = %q, %v", out.Text, err)
	}

	out, _ = m.Chat(ctx, nil, nil)
	if out.Text != "two" {
		t.Errorf("second call = %q", out.Text)
	}

	// Exhausted script repeats the last entry.
	out, _ = m.Chat(ctx, nil, nil)
	if out.Text != "two" {
		t.Errorf("exhausted call = %q", out.Text)
	}

	if m.CallCount() != 3 {
		t.Errorf("CallCount = %d", m.CallCount())
	}

	m.Reset()
	if m.CallCount() != 0 {
		t.Error("Reset did not clear calls")
	}
	out, _ = m.Chat(ctx, nil, nil)
	if out.Text != "one" {
		t.Error("Reset did not rewind the script")
	}
}

func TestMockChatModel_Error(t *testing.T) {
	m := &MockChatModel{Err: errors.New("boom")}

	_, err := m.Chat(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if m.CallCount() != 1 {
		t.Error("failed call not recorded")
	}
}

func TestMockChatModel_ContextCancelled(t *testing.T) {
	m := &MockChatModel{Responses: []ChatOut{{Text: "never"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Chat(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
