package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/model/chat"
	"github.com/zhouzirui/shopdesk/backend/internal/service/agent"
	"github.com/zhouzirui/shopdesk/backend/internal/service/identity"
	"github.com/zhouzirui/shopdesk/backend/pkg/utils"
)

const (
	historyTurns     = 5
	defaultTurnLimit = 20
	maxBodyBytes     = 64 << 10
)

// Runner starts a turn and returns its output stream.
type Runner interface {
	Run(ctx context.Context, req agent.Request) (*schema.StreamReader[string], error)
}

// Transcript is the audit record of finished turns.
type Transcript interface {
	Recent(ctx context.Context, userID string, limit int) []chat.Turn
	History(ctx context.Context, userID string, turns int) []chat.Message
}

// Handler serves the conversational endpoint over Server-Sent Events.
type Handler struct {
	runner     Runner
	transcript Transcript
	log        zerolog.Logger
}

// New creates a chat handler.
func New(runner Runner, transcript Transcript, log zerolog.Logger) *Handler {
	return &Handler{
		runner:     runner,
		transcript: transcript,
		log:        log.With().Str("component", "chat_handler").Logger(),
	}
}

// RegisterRoutes mounts the chat routes. They expect the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/turns", h.handleTurns)
}

// StreamResponse is one SSE frame of a turn.
type StreamResponse struct {
	Event    string `json:"event"`
	Content  string `json:"content,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string           `json:"message"`
	History []historyMessage `json:"history"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var payload chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	history, err := toHistory(payload.History)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(history) == 0 && h.transcript != nil {
		history = h.transcript.History(r.Context(), caller.UserID, historyTurns)
	}

	stream, err := h.runner.Run(r.Context(), agent.Request{
		UserID:  caller.UserID,
		History: history,
		Message: payload.Message,
	})
	switch {
	case errors.Is(err, agent.ErrMissingUser):
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	case err != nil:
		h.log.Debug().Err(err).Str("user_id", caller.UserID).Msg("turn not started")
		utils.RespondError(w, http.StatusBadRequest, "invalid conversation history")
		return
	}
	defer stream.Close()

	utils.SetupSSEHeaders(w)
	if err := utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start"}); err != nil {
		return
	}

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.log.Error().Err(recvErr).Str("user_id", caller.UserID).Msg("turn stream failed")
			utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", Error: "stream interrupted"})
			return
		}

		if err := utils.SendSSEChunk(w, flusher, StreamResponse{Event: "delta", Content: chunk}); err != nil {
			// Client is gone; closing the stream lets the turn finish quietly.
			h.log.Debug().Err(err).Str("user_id", caller.UserID).Msg("client disconnected")
			return
		}
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "end", Finished: true})
}

func (h *Handler) handleTurns(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if h.transcript == nil {
		utils.RespondJSON(w, http.StatusOK, []chat.Turn{})
		return
	}

	limit := defaultTurnLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	utils.RespondJSON(w, http.StatusOK, h.transcript.Recent(r.Context(), caller.UserID, limit))
}

func toHistory(in []historyMessage) ([]chat.Message, error) {
	out := make([]chat.Message, 0, len(in))
	for _, m := range in {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch chat.Role(m.Role) {
		case chat.RoleUser:
			out = append(out, chat.User(content))
		case chat.RoleAssistant:
			out = append(out, chat.Answer(content))
		default:
			return nil, errors.New("history role must be user or assistant")
		}
	}
	return out, nil
}
