package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/reflectgraph/workflow/emit"
	"github.com/dshills/reflectgraph/workflow/model"
)

func TestReviewer_Approve(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: `{"approved": true, "feedback": "well done"}`},
	}}
	r := NewReviewer(chat)

	buf := emit.NewBufferedEmitter()
	req := ReviewRequest{
		CorrelationID: "corr-1",
		Turn:          Turn{UserText: "what is my balance?"},
		Candidate:     []model.Message{{Role: model.RoleAssistant, Content: "the answer"}},
	}
	ec := newExecContextForTest(r.ID(), req.Turn, buf)

	if err := r.Handle(context.Background(), req, ec); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	out := ec.drain()
	if len(out) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(out))
	}
	decision, ok := out[0].(ReviewDecision)
	if !ok {
		t.Fatalf("expected ReviewDecision, got %T", out[0])
	}
	if !decision.Approved || decision.Feedback != "well done" {
		t.Errorf("decision = %+v", decision)
	}
	if decision.CorrelationID != "corr-1" {
		t.Errorf("correlation ID not preserved: %q", decision.CorrelationID)
	}

	events := buf.ByType("corr-1", emit.TypeDecision)
	if len(events) != 1 || !events[0].Approved {
		t.Errorf("decision events = %+v", events)
	}

	// Review prompt carries both the question and the candidate.
	prompt := chat.Calls[0].Messages[1].Content
	if !strings.Contains(prompt, "what is my balance?") || !strings.Contains(prompt, "the answer") {
		t.Errorf("review prompt incomplete: %q", prompt)
	}
}

func TestReviewer_RejectWithEmptyFeedback(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: `{"approved": false, "feedback": "  "}`},
	}}
	r := NewReviewer(chat)
	ec := newExecContextForTest(r.ID(), Turn{}, nil)

	req := ReviewRequest{CorrelationID: "corr-1", Candidate: []model.Message{{Content: "x"}}}
	if err := r.Handle(context.Background(), req, ec); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	decision := ec.drain()[0].(ReviewDecision)
	if decision.Approved {
		t.Fatal("expected rejection")
	}
	if strings.TrimSpace(decision.Feedback) == "" {
		t.Error("rejection feedback must never be empty")
	}
}

func TestReviewer_WrongMessageType(t *testing.T) {
	r := NewReviewer(&model.MockChatModel{})
	ec := newExecContextForTest(r.ID(), Turn{}, nil)

	err := r.Handle(context.Background(), RequestEnvelope{CorrelationID: "corr-1"}, ec)
	var pv *ProtocolViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("expected ProtocolViolationError, got %v", err)
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		approved bool
		feedback string
		wantErr  bool
	}{
		{
			name:     "bare JSON",
			text:     `{"approved": true, "feedback": "ok"}`,
			approved: true,
			feedback: "ok",
		},
		{
			name:     "fenced JSON",
			text:     "```json\n{\"approved\": false, \"feedback\": \"add detail\"}\n```",
			approved: false,
			feedback: "add detail",
		},
		{
			name:     "JSON wrapped in prose",
			text:     "Here is my verdict:\n{\"approved\": true, \"feedback\": \"fine\"}\nThanks!",
			approved: true,
			feedback: "fine",
		},
		{
			name:    "no JSON at all",
			text:    "looks good to me",
			wantErr: true,
		},
		{
			name:    "broken JSON",
			text:    `{"approved": tru`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseDecision(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", d)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDecision failed: %v", err)
			}
			if d.Approved != tt.approved || d.Feedback != tt.feedback {
				t.Errorf("got %+v", d)
			}
		})
	}
}
