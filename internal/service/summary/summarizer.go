// Package summary condenses the latest tool batch into a note for the LLM.
package summary

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/shopdesk/backend/internal/model/chat"
	"github.com/zhouzirui/shopdesk/backend/internal/service/tools"
)

// Header opens every summary note.
const Header = "Araçlardan şu bilgiler toplandı:\n"

// TraitLookup resolves operation traits by name.
type TraitLookup interface {
	Traits(name string) tools.Traits
}

// Summarizer builds the system note read by the next AGENT step.
type Summarizer struct {
	traits TraitLookup
}

// New creates a Summarizer.
func New(traits TraitLookup) *Summarizer {
	return &Summarizer{traits: traits}
}

// Summarize returns one system message for the most recent tool batch, or
// false when the batch produced nothing worth telling the LLM.
func (s *Summarizer) Summarize(state *chat.TurnState) (chat.Message, bool) {
	batch, ok := state.LastToolBatch()
	if !ok {
		return chat.Message{}, false
	}

	byID := make(map[string]chat.Message, len(batch.ToolCalls))
	for _, res := range state.ToolResults(batch) {
		byID[res.ToolCallID] = res
	}

	var lines []string
	for _, call := range batch.ToolCalls {
		res, ok := byID[call.ID]
		if !ok {
			continue
		}
		if line, keep := s.line(call.Name, res.Content); keep {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return chat.Message{}, false
	}
	return chat.System(Header + strings.Join(lines, "\n")), true
}

func (s *Summarizer) line(name, content string) (string, bool) {
	text := strings.TrimSpace(content)
	if s.traits != nil && s.traits.Traits(name).Recommendation && text == "" {
		// no recommendation is not news for the customer
		return "", false
	}
	if text == "" {
		return "", false
	}
	if strings.Contains(strings.ToLower(text), tools.ErrorMarker) {
		return fmt.Sprintf("- '%s' kullanılırken bir sorun yaşandı.", name), true
	}
	return "- " + text, true
}
