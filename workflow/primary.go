package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dshills/reflectgraph/workflow/emit"
	"github.com/dshills/reflectgraph/workflow/model"
	"github.com/dshills/reflectgraph/workflow/tool"
)

// DefaultPrimaryInstruction is the system prompt used by the Primary
// executor when no custom instruction is configured.
const DefaultPrimaryInstruction = `You are a customer support agent. Answer the user's question accurately,
completely, and in a professional tone. Use the available tools to look up
account data when the question requires it; never invent data a tool could
have provided.`

// feedbackPromptFormat wraps reviewer feedback as corrective guidance for
// the regeneration call.
const feedbackPromptFormat = "REVIEWER FEEDBACK: %s\n\nPlease improve your response based on this feedback."

// Primary generates candidate responses. It handles two message types: a
// RequestEnvelope on the first hop, and a rejected ReviewDecision on the
// feedback hop. Both produce a ReviewRequest sent to the Reviewer; the
// Primary never delivers output to the caller directly.
type Primary struct {
	id          string
	chat        model.ChatModel
	instruction string
	tools       []tool.Tool
}

// PrimaryOption configures a Primary executor.
type PrimaryOption func(*Primary)

// WithPrimaryInstruction replaces the default system prompt.
func WithPrimaryInstruction(instruction string) PrimaryOption {
	return func(p *Primary) {
		if instruction != "" {
			p.instruction = instruction
		}
	}
}

// WithTools makes tools available to the generation call. Absence of tools
// is a valid state; the Primary simply generates from the prompt alone.
func WithTools(tools ...tool.Tool) PrimaryOption {
	return func(p *Primary) {
		p.tools = append(p.tools, tools...)
	}
}

// NewPrimary creates the response-generating executor.
func NewPrimary(chat model.ChatModel, opts ...PrimaryOption) *Primary {
	p := &Primary{
		id:          "primary",
		chat:        chat,
		instruction: DefaultPrimaryInstruction,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID implements Executor.
func (p *Primary) ID() string { return p.id }

// Handle implements Executor.
func (p *Primary) Handle(ctx context.Context, msg Message, ec *ExecContext) error {
	switch m := msg.(type) {
	case RequestEnvelope:
		return p.generate(ctx, ec, m.Turn, "")
	case ReviewDecision:
		if m.Approved {
			return &ProtocolViolationError{
				ExecutorID:    p.id,
				CorrelationID: msg.Correlation(),
				State:         StatusPendingGeneration.String(),
				Msg:           "approved decision routed to primary",
			}
		}
		return p.generate(ctx, ec, ec.Turn, m.Feedback)
	default:
		return &ProtocolViolationError{
			ExecutorID:    p.id,
			CorrelationID: msg.Correlation(),
			State:         StatusPendingGeneration.String(),
			Msg:           fmt.Sprintf("unexpected message type %T", msg),
		}
	}
}

// generate runs one generation round and stages a ReviewRequest. On the
// feedback hop the reviewer's guidance is appended as a system message while
// the original user text and history stay unchanged.
func (p *Primary) generate(ctx context.Context, ec *ExecContext, turn Turn, feedback string) error {
	ec.Emit(emit.Event{Type: emit.TypeAgentStart})

	msgs := p.buildPrompt(turn, feedback)

	out, err := p.chatWithTools(ctx, ec, msgs)
	if err != nil {
		return &GenerationError{
			ExecutorID:    p.id,
			CorrelationID: ec.CorrelationID(),
			Retryable:     model.IsRetryable(err),
			Err:           err,
		}
	}

	ec.Emit(emit.Event{Type: emit.TypeAgentMessage, Text: out.Text})

	ec.Send(ReviewRequest{
		CorrelationID: ec.CorrelationID(),
		Turn:          turn,
		Candidate: []model.Message{
			{Role: model.RoleAssistant, Content: out.Text},
		},
	})
	return nil
}

func (p *Primary) buildPrompt(turn Turn, feedback string) []model.Message {
	msgs := make([]model.Message, 0, len(turn.History)+3)
	msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: p.instruction})
	msgs = append(msgs, turn.History...)
	msgs = append(msgs, model.Message{Role: model.RoleUser, Content: turn.UserText})
	if feedback != "" {
		msgs = append(msgs, model.Message{
			Role:    model.RoleSystem,
			Content: fmt.Sprintf(feedbackPromptFormat, feedback),
		})
	}
	return msgs
}

// chatWithTools runs the generation call, executing at most one tool round.
// A failed tool call degrades into a prompt note instead of failing the
// correlation when the model can still answer.
func (p *Primary) chatWithTools(ctx context.Context, ec *ExecContext, msgs []model.Message) (model.ChatOut, error) {
	specs := p.toolSpecs()

	out, err := p.chat.Chat(ctx, msgs, specs)
	if err != nil {
		return model.ChatOut{}, err
	}
	if len(out.ToolCalls) == 0 {
		return out, nil
	}

	for _, call := range out.ToolCalls {
		ec.Emit(emit.Event{Type: emit.TypeToolCalled, ToolName: call.Name})

		result, terr := p.invokeTool(ctx, call)
		var note string
		if terr != nil {
			note = fmt.Sprintf("Tool %s was unavailable (%v). Answer from what you know and say so when data is missing.", call.Name, terr)
		} else {
			encoded, merr := json.Marshal(result)
			if merr != nil {
				return model.ChatOut{}, fmt.Errorf("failed to encode tool result: %w", merr)
			}
			note = fmt.Sprintf("Tool %s returned: %s", call.Name, encoded)
		}
		msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: note})
	}

	// Second pass without tools so the model must produce a final answer.
	return p.chat.Chat(ctx, msgs, nil)
}

func (p *Primary) invokeTool(ctx context.Context, call model.ToolCall) (map[string]interface{}, error) {
	for _, t := range p.tools {
		if t.Name() == call.Name {
			result, err := t.Call(ctx, call.Input)
			if err != nil {
				return nil, &ToolError{Tool: call.Name, Err: err}
			}
			return result, nil
		}
	}
	return nil, &ToolError{Tool: call.Name, Err: fmt.Errorf("no such tool")}
}

func (p *Primary) toolSpecs() []model.ToolSpec {
	if len(p.tools) == 0 {
		return nil
	}
	specs := make([]model.ToolSpec, 0, len(p.tools))
	for _, t := range p.tools {
		spec := model.ToolSpec{
			Name:        t.Name(),
			Description: "Domain data lookup",
			Schema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		}
		if d, ok := t.(tool.Described); ok {
			spec.Description = d.Description()
			if schema := d.Schema(); schema != nil {
				spec.Schema = schema
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
