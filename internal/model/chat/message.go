package chat

import (
	"errors"
	"fmt"
)

// Role tags the shape of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

var (
	ErrUnknownRole       = errors.New("unknown message role")
	ErrMissingCallID     = errors.New("tool result requires a tool call id")
	ErrUnexpectedCalls   = errors.New("only assistant messages may carry tool calls")
	ErrDuplicateCallID   = errors.New("duplicate tool call id")
	ErrIncompleteCall    = errors.New("tool call requires id and name")
	ErrUnexpectedCallRef = errors.New("only tool results may reference a tool call")
)

// ToolCall is one operation the assistant asked to run.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is one entry of a turn's working memory. Which optional fields are
// populated depends on Role; use the constructors to build valid values.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	ToolName   string     `json:"toolName,omitempty"`
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// Assistant builds an assistant message, optionally requesting tool calls.
func Assistant(content string, calls ...ToolCall) (Message, error) {
	msg := Message{Role: RoleAssistant, Content: content}
	if len(calls) > 0 {
		msg.ToolCalls = append([]ToolCall(nil), calls...)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Answer builds a plain assistant reply without tool calls.
func Answer(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResult builds the reply to the tool call identified by callID.
func ToolResult(callID, name, content string) (Message, error) {
	msg := Message{Role: RoleTool, Content: content, ToolCallID: callID, ToolName: name}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// HasToolCalls reports whether the message asks for at least one operation.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Validate checks the role-specific shape of the message.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleSystem:
		if len(m.ToolCalls) > 0 {
			return ErrUnexpectedCalls
		}
		if m.ToolCallID != "" {
			return ErrUnexpectedCallRef
		}
	case RoleAssistant:
		if m.ToolCallID != "" {
			return ErrUnexpectedCallRef
		}
		seen := make(map[string]struct{}, len(m.ToolCalls))
		for _, call := range m.ToolCalls {
			if call.ID == "" || call.Name == "" {
				return ErrIncompleteCall
			}
			if _, dup := seen[call.ID]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicateCallID, call.ID)
			}
			seen[call.ID] = struct{}{}
		}
	case RoleTool:
		if m.ToolCallID == "" {
			return ErrMissingCallID
		}
		if len(m.ToolCalls) > 0 {
			return ErrUnexpectedCalls
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, m.Role)
	}
	return nil
}
