package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/reflectgraph/workflow/emit"
	"github.com/dshills/reflectgraph/workflow/model"
	"github.com/dshills/reflectgraph/workflow/tool"
)

func newExecContextForTest(executorID string, turn Turn, emitter emit.Emitter) *ExecContext {
	return newExecContext(executorID, "corr-1", "s1", turn, emitter)
}

func TestPrimary_GeneratesReviewRequest(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "the answer"}}}
	p := NewPrimary(chat)

	turn := Turn{UserText: "what is my balance?"}
	ec := newExecContextForTest(p.ID(), turn, nil)

	err := p.Handle(context.Background(), RequestEnvelope{CorrelationID: "corr-1", Turn: turn}, ec)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	out := ec.drain()
	if len(out) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(out))
	}
	req, ok := out[0].(ReviewRequest)
	if !ok {
		t.Fatalf("expected ReviewRequest, got %T", out[0])
	}
	if req.CorrelationID != "corr-1" {
		t.Errorf("correlation ID not preserved: %q", req.CorrelationID)
	}
	if CandidateText(req.Candidate) != "the answer" {
		t.Errorf("candidate = %q", CandidateText(req.Candidate))
	}

	// Prompt shape: instruction, then user text.
	call := chat.Calls[0]
	if call.Messages[0].Role != model.RoleSystem {
		t.Error("prompt does not start with the instruction")
	}
	last := call.Messages[len(call.Messages)-1]
	if last.Role != model.RoleUser || last.Content != "what is my balance?" {
		t.Errorf("unexpected final prompt message: %+v", last)
	}
}

func TestPrimary_FeedbackHop(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "revised answer"}}}
	p := NewPrimary(chat)

	turn := Turn{
		History:  []model.Message{{Role: model.RoleUser, Content: "earlier"}},
		UserText: "what is my balance?",
	}
	ec := newExecContextForTest(p.ID(), turn, nil)

	decision := ReviewDecision{CorrelationID: "corr-1", Approved: false, Feedback: "cite the amount"}
	if err := p.Handle(context.Background(), decision, ec); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	call := chat.Calls[0]
	var sawFeedback, sawOriginal, sawHistory bool
	for _, m := range call.Messages {
		if strings.Contains(m.Content, "REVIEWER FEEDBACK: cite the amount") {
			sawFeedback = true
		}
		if m.Content == "what is my balance?" {
			sawOriginal = true
		}
		if m.Content == "earlier" {
			sawHistory = true
		}
	}
	if !sawFeedback {
		t.Error("regeneration prompt missing reviewer feedback")
	}
	if !sawOriginal {
		t.Error("regeneration prompt missing original user text")
	}
	if !sawHistory {
		t.Error("regeneration prompt missing conversation history")
	}

	out := ec.drain()
	if len(out) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(out))
	}
	if req := out[0].(ReviewRequest); CandidateText(req.Candidate) != "revised answer" {
		t.Errorf("candidate = %q", CandidateText(req.Candidate))
	}
}

func TestPrimary_ApprovedDecisionIsViolation(t *testing.T) {
	p := NewPrimary(&model.MockChatModel{})
	ec := newExecContextForTest(p.ID(), Turn{}, nil)

	err := p.Handle(context.Background(), ReviewDecision{CorrelationID: "corr-1", Approved: true}, ec)
	var pv *ProtocolViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("expected ProtocolViolationError, got %v", err)
	}
}

func TestPrimary_ToolRound(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{
		{ToolCalls: []model.ToolCall{{Name: "account_lookup", Input: map[string]interface{}{"id": "42"}}}},
		{Text: "your balance is $10"},
	}}
	lookup := &tool.MockTool{
		ToolName:  "account_lookup",
		Responses: []map[string]interface{}{{"balance": "$10"}},
	}
	p := NewPrimary(chat, WithTools(lookup))

	buf := emit.NewBufferedEmitter()
	turn := Turn{UserText: "what is my balance?"}
	ec := newExecContextForTest(p.ID(), turn, buf)

	err := p.Handle(context.Background(), RequestEnvelope{CorrelationID: "corr-1", Turn: turn}, ec)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if lookup.CallCount() != 1 {
		t.Fatalf("expected 1 tool call, got %d", lookup.CallCount())
	}
	if got := lookup.Calls[0].Input["id"]; got != "42" {
		t.Errorf("tool received input %v", got)
	}

	// First call offers the tool spec; second call must not.
	if len(chat.Calls) != 2 {
		t.Fatalf("expected 2 chat calls, got %d", len(chat.Calls))
	}
	if len(chat.Calls[0].Tools) != 1 || chat.Calls[0].Tools[0].Name != "account_lookup" {
		t.Errorf("first call tools = %+v", chat.Calls[0].Tools)
	}
	if len(chat.Calls[1].Tools) != 0 {
		t.Error("second call should not offer tools")
	}

	// Tool result fed back into the second prompt.
	var sawResult bool
	for _, m := range chat.Calls[1].Messages {
		if strings.Contains(m.Content, "$10") {
			sawResult = true
		}
	}
	if !sawResult {
		t.Error("tool result not fed back into the prompt")
	}

	called := buf.ByType("corr-1", emit.TypeToolCalled)
	if len(called) != 1 || called[0].ToolName != "account_lookup" {
		t.Errorf("tool_called events = %+v", called)
	}

	out := ec.drain()
	if req := out[0].(ReviewRequest); CandidateText(req.Candidate) != "your balance is $10" {
		t.Errorf("candidate = %q", CandidateText(req.Candidate))
	}
}

func TestPrimary_ToolFailureDegrades(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{
		{ToolCalls: []model.ToolCall{{Name: "account_lookup"}}},
		{Text: "I could not reach the account system."},
	}}
	lookup := &tool.MockTool{ToolName: "account_lookup", Err: errors.New("backend down")}
	p := NewPrimary(chat, WithTools(lookup))

	turn := Turn{UserText: "what is my balance?"}
	ec := newExecContextForTest(p.ID(), turn, nil)

	err := p.Handle(context.Background(), RequestEnvelope{CorrelationID: "corr-1", Turn: turn}, ec)
	if err != nil {
		t.Fatalf("tool failure must degrade, not fail: %v", err)
	}

	// The failure note reaches the second prompt.
	var sawNote bool
	for _, m := range chat.Calls[1].Messages {
		if strings.Contains(m.Content, "unavailable") {
			sawNote = true
		}
	}
	if !sawNote {
		t.Error("tool failure note missing from regeneration prompt")
	}
}

func TestPrimary_ModelFailure(t *testing.T) {
	chat := &model.MockChatModel{Err: errors.New("timeout while connecting")}
	p := NewPrimary(chat)

	turn := Turn{UserText: "hello"}
	ec := newExecContextForTest(p.ID(), turn, nil)

	err := p.Handle(context.Background(), RequestEnvelope{CorrelationID: "corr-1", Turn: turn}, ec)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !genErr.Retryable {
		t.Error("timeout should classify as retryable")
	}
	if len(ec.drain()) != 0 {
		t.Error("failed hop must not stage outbound messages")
	}
}

func TestPrimary_CustomInstruction(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
	p := NewPrimary(chat, WithPrimaryInstruction("You are a billing specialist."))

	turn := Turn{UserText: "hi"}
	ec := newExecContextForTest(p.ID(), turn, nil)
	if err := p.Handle(context.Background(), RequestEnvelope{CorrelationID: "corr-1", Turn: turn}, ec); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if chat.Calls[0].Messages[0].Content != "You are a billing specialist." {
		t.Errorf("instruction not applied: %q", chat.Calls[0].Messages[0].Content)
	}
}
