package chat

import (
	"errors"
	"fmt"
)

// ErrUnknownToolCall marks a tool result that answers no earlier request.
var ErrUnknownToolCall = errors.New("tool result answers an unknown tool call")

// TurnState is the working memory of exactly one conversational turn. It is
// never shared between turns.
type TurnState struct {
	ID              string
	UserID          string
	Messages        []Message
	Validated       bool
	ValidationError bool
	Cached          bool
	Err             error

	requested map[string]struct{}
}

// NewTurnState seeds a turn with prior history followed by the new user message.
func NewTurnState(id, userID string, history []Message, message string) (*TurnState, error) {
	state := &TurnState{ID: id, UserID: userID}
	if err := state.Append(history...); err != nil {
		return nil, fmt.Errorf("invalid history: %w", err)
	}
	if err := state.Append(User(message)); err != nil {
		return nil, err
	}
	return state, nil
}

// Append validates and appends messages. A tool result must answer a tool
// call requested earlier in the same turn.
func (s *TurnState) Append(msgs ...Message) error {
	for _, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return err
		}
		if msg.Role == RoleTool {
			if _, ok := s.requested[msg.ToolCallID]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownToolCall, msg.ToolCallID)
			}
		}
		if msg.HasToolCalls() {
			if s.requested == nil {
				s.requested = make(map[string]struct{})
			}
			for _, call := range msg.ToolCalls {
				s.requested[call.ID] = struct{}{}
			}
		}
		s.Messages = append(s.Messages, msg)
	}
	return nil
}

// Last returns the most recent message.
func (s *TurnState) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LatestUser returns the user message that triggered the turn.
func (s *TurnState) LatestUser() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// HasHistory reports whether messages precede the user message that
// triggered the turn.
func (s *TurnState) HasHistory() bool {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return i > 0
		}
	}
	return false
}

// LastToolBatch returns the most recent assistant message that requested tools.
func (s *TurnState) LastToolBatch() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].HasToolCalls() {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// ToolResults returns the tool results answering the calls of batch, in
// history order.
func (s *TurnState) ToolResults(batch Message) []Message {
	ids := make(map[string]struct{}, len(batch.ToolCalls))
	for _, call := range batch.ToolCalls {
		ids[call.ID] = struct{}{}
	}

	results := make([]Message, 0, len(ids))
	for _, msg := range s.Messages {
		if msg.Role != RoleTool {
			continue
		}
		if _, ok := ids[msg.ToolCallID]; ok {
			results = append(results, msg)
		}
	}
	return results
}

// FinalAnswer returns the closing assistant reply, if the turn has one.
func (s *TurnState) FinalAnswer() (string, bool) {
	last, ok := s.Last()
	if !ok || last.Role != RoleAssistant || last.HasToolCalls() {
		return "", false
	}
	return last.Content, true
}
