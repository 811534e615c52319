// Package anthropic provides a ChatModel adapter for Anthropic's Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/reflectgraph/workflow/model"
)

// ChatModel implements model.ChatModel for Anthropic Claude.
//
// It wraps the official anthropic-sdk-go client and handles the
// Anthropic-specific message shape:
//   - System prompts are passed as a separate parameter, not as messages
//   - Tool calls arrive as tool_use content blocks
//
// Example:
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "claude-3-5-sonnet-20241022")
//	out, err := m.Chat(ctx, messages, nil)
type ChatModel struct {
	client    *anthropic.Client
	modelName string
	maxTokens int64
}

// NewChatModel creates an Anthropic ChatModel.
//
// An empty modelName selects claude-3-5-sonnet-20241022.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "claude-3-5-sonnet-20241022"
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{
		client:    &client,
		modelName: modelName,
		maxTokens: 4096,
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	system, conversation := splitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: m.maxTokens,
		Messages:  conversation,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("anthropic: %w", err)
	}

	return convertResponse(resp)
}

// splitSystem separates system messages from the conversation; Anthropic
// takes the system prompt as a dedicated request parameter.
func splitSystem(messages []model.Message) (string, []anthropic.MessageParam) {
	var system string
	conversation := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case model.RoleAssistant:
			conversation = append(conversation, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			conversation = append(conversation, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return system, conversation
}

func convertTools(tools []model.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if t.Schema != nil {
			if props, ok := t.Schema["properties"]; ok {
				schema.Properties = props
			}
			switch req := t.Schema["required"].(type) {
			case []string:
				schema.Required = req
			case []interface{}:
				for _, r := range req {
					if s, ok := r.(string); ok {
						schema.Required = append(schema.Required, s)
					}
				}
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(schema, t.Name)
	}
	return out
}

func convertResponse(resp *anthropic.Message) (model.ChatOut, error) {
	out := model.ChatOut{}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text := block.AsText().Text
			if text == "" {
				continue
			}
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += text
		case "tool_use":
			toolBlock := block.AsToolUse()
			input := map[string]interface{}{}
			if len(toolBlock.Input) > 0 {
				if err := json.Unmarshal(toolBlock.Input, &input); err != nil {
					return model.ChatOut{}, fmt.Errorf("anthropic: malformed tool input for %s: %w", toolBlock.Name, err)
				}
			}
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				Name:  toolBlock.Name,
				Input: input,
			})
		}
	}

	return out, nil
}
