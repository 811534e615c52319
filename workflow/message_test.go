package workflow

import (
	"testing"

	"github.com/dshills/reflectgraph/workflow/model"
)

func TestMessages_Correlation(t *testing.T) {
	msgs := []Message{
		RequestEnvelope{CorrelationID: "c1"},
		ReviewRequest{CorrelationID: "c1"},
		ReviewDecision{CorrelationID: "c1"},
	}
	for _, m := range msgs {
		if m.Correlation() != "c1" {
			t.Errorf("%T.Correlation() = %q", m, m.Correlation())
		}
	}
}

func TestTurn_With(t *testing.T) {
	original := Turn{
		History:  []model.Message{{Role: model.RoleUser, Content: "first"}},
		UserText: "second",
	}

	derived := original.With(model.RoleAssistant, "reply")
	if len(derived.History) != 2 || derived.History[1].Content != "reply" {
		t.Errorf("derived history = %+v", derived.History)
	}
	if derived.UserText != "second" {
		t.Errorf("user text changed: %q", derived.UserText)
	}

	// The original must be untouched.
	if len(original.History) != 1 {
		t.Errorf("original history mutated: %+v", original.History)
	}
}

func TestCandidateText(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := CandidateText(nil); got != "" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("single fragment", func(t *testing.T) {
		c := []model.Message{{Role: model.RoleAssistant, Content: "hello"}}
		if got := CandidateText(c); got != "hello" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("multiple fragments join with newline", func(t *testing.T) {
		c := []model.Message{
			{Role: model.RoleAssistant, Content: "part one"},
			{Role: model.RoleAssistant, Content: "part two"},
		}
		if got := CandidateText(c); got != "part one\npart two" {
			t.Errorf("got %q", got)
		}
	})
}

func TestStatus(t *testing.T) {
	terminal := []Status{StatusApproved, StatusFailed, StatusBoundExceeded, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPendingGeneration, StatusPendingReview} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}

	if StatusBoundExceeded.String() != "bound_exceeded" {
		t.Errorf("String() = %q", StatusBoundExceeded.String())
	}
	if Status(99).String() != "unknown" {
		t.Errorf("out-of-range String() = %q", Status(99).String())
	}
}
