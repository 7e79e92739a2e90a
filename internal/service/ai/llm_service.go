package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/model/chat"
)

// ErrMalformedToolCall marks model output whose tool arguments are not a JSON object.
var ErrMalformedToolCall = errors.New("malformed tool call arguments")

// Service asks the chat model for the next assistant message of a turn.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	log       zerolog.Logger
}

// NewService binds the operation catalogue to chatModel and compiles the
// prompt chain.
func NewService(ctx context.Context, chatModel model.ChatModel, tools []*schema.ToolInfo, log zerolog.Logger) (*Service, error) {
	if len(tools) > 0 {
		if err := chatModel.BindTools(tools); err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		log:       log.With().Str("component", "ai").Logger(),
	}, nil
}

// Decide returns either a final answer or a batch of tool calls.
func (s *Service) Decide(ctx context.Context, messages []chat.Message) (chat.Message, error) {
	input := map[string]any{
		"system":  SystemInstruction,
		"history": toSchemaMessages(messages),
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to run AI chain: %w", err)
	}

	msg, err := fromSchemaMessage(response)
	if err != nil {
		return chat.Message{}, err
	}

	s.log.Debug().Int("length", len(msg.Content)).Int("tool_calls", len(msg.ToolCalls)).Msg("model replied")
	return msg, nil
}

func toSchemaMessages(messages []chat.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case chat.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case chat.RoleTool:
			out = append(out, schema.ToolMessage(msg.Content, msg.ToolCallID))
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, toSchemaCalls(msg.ToolCalls)))
		}
	}
	return out
}

func toSchemaCalls(calls []chat.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}

	out := make([]schema.ToolCall, 0, len(calls))
	for _, call := range calls {
		args := "{}"
		if len(call.Arguments) > 0 {
			if raw, err := json.Marshal(call.Arguments); err == nil {
				args = string(raw)
			}
		}
		out = append(out, schema.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      call.Name,
				Arguments: args,
			},
		})
	}
	return out
}

func fromSchemaMessage(msg *schema.Message) (chat.Message, error) {
	if msg == nil {
		return chat.Message{}, errors.New("model returned no message")
	}
	if msg.Role != schema.Assistant {
		return chat.Message{}, fmt.Errorf("model returned role %q", msg.Role)
	}

	calls := make([]chat.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if raw := tc.Function.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return chat.Message{}, fmt.Errorf("%w: %s: %v", ErrMalformedToolCall, tc.Function.Name, err)
			}
		}
		calls = append(calls, chat.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}

	return chat.Assistant(msg.Content, calls...)
}
