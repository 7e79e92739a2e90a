package chat

import (
	"context"
	"sync"
	"time"

	"github.com/zhouzirui/shopdesk/backend/internal/model/chat"
)

const defaultPerUser = 50

// Service keeps an in-memory transcript of finished turns per user.
type Service struct {
	mu      sync.RWMutex
	perUser int
	turns   map[string][]chat.Turn
	now     func() time.Time
}

// NewService creates a transcript keeping at most perUser turns per user.
func NewService(perUser int) *Service {
	if perUser <= 0 {
		perUser = defaultPerUser
	}
	return &Service{
		perUser: perUser,
		turns:   make(map[string][]chat.Turn),
		now:     time.Now,
	}
}

// Record stores a finished turn. It matches the orchestrator's OnTurnEnd hook.
func (s *Service) Record(state *chat.TurnState) {
	if state == nil || state.UserID == "" {
		return
	}

	turn := chat.Turn{
		ID:        state.ID,
		UserID:    state.UserID,
		Cached:    state.Cached,
		Rejected:  state.ValidationError,
		Failed:    state.Err != nil,
		CreatedAt: s.now().UTC(),
	}
	if query, ok := state.LatestUser(); ok {
		turn.Query = query.Content
	}
	if answer, ok := state.FinalAnswer(); ok {
		turn.Answer = answer
	}
	for _, msg := range state.Messages {
		for _, call := range msg.ToolCalls {
			turn.Tools = append(turn.Tools, call.Name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.turns[state.UserID], turn)
	if len(list) > s.perUser {
		list = append([]chat.Turn(nil), list[len(list)-s.perUser:]...)
	}
	s.turns[state.UserID] = list
}

// Recent returns up to limit of the user's latest turns, newest first.
func (s *Service) Recent(_ context.Context, userID string, limit int) []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.turns[userID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}

	out := make([]chat.Turn, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out
}

// History rebuilds the last turns of a user as conversation messages, oldest
// first. Failed and rejected turns are left out.
func (s *Service) History(ctx context.Context, userID string, turns int) []chat.Message {
	recent := s.Recent(ctx, userID, 0)

	var picked []chat.Turn
	for _, t := range recent {
		if t.Failed || t.Rejected || t.Answer == "" {
			continue
		}
		picked = append(picked, t)
		if len(picked) == turns {
			break
		}
	}

	messages := make([]chat.Message, 0, 2*len(picked))
	for i := len(picked) - 1; i >= 0; i-- {
		messages = append(messages, chat.User(picked[i].Query), chat.Answer(picked[i].Answer))
	}
	return messages
}
