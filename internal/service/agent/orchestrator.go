// Package agent drives one conversational turn through cache lookup, input
// validation and the LLM/tool loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/metrics"
	"github.com/zhouzirui/shopdesk/backend/internal/model/chat"
	"github.com/zhouzirui/shopdesk/backend/internal/service/cache"
	"github.com/zhouzirui/shopdesk/backend/internal/service/guard"
)

// ErrMissingUser is returned by Run when the request carries no identity.
var ErrMissingUser = errors.New("turn requires an authenticated user id")

const (
	// FallbackAnswer closes a turn whose tool loop hit the iteration cap.
	FallbackAnswer = "Üzgünüm, sorunuzu şu anda yanıtlayamıyorum. Lütfen müşteri hizmetlerimizle iletişime geçin."
	// ApologyAnswer is the only text a caller sees after an unexpected failure.
	ApologyAnswer = "Üzgünüm, isteğinizi işlerken beklenmeyen bir sorun oluştu. Lütfen daha sonra tekrar deneyin."

	defaultMaxIterations = 5
)

// Cache is the shared answer cache.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Validator screens the user message before any LLM call.
type Validator interface {
	Validate(content string) guard.Result
}

// LLM decides the next assistant message: a final answer or a tool batch.
type LLM interface {
	Decide(ctx context.Context, messages []chat.Message) (chat.Message, error)
}

// Dispatcher runs a tool batch under the caller's identity.
type Dispatcher interface {
	Dispatch(ctx context.Context, calls []chat.ToolCall, userID string) ([]chat.Message, error)
}

// Summarizer condenses the latest tool batch for the next LLM step.
type Summarizer interface {
	Summarize(state *chat.TurnState) (chat.Message, bool)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Cache      Cache
	Validator  Validator
	LLM        LLM
	Dispatcher Dispatcher
	Summarizer Summarizer
	Policy     *CachePolicy
	Logger     zerolog.Logger
}

// Options tune an Orchestrator.
type Options struct {
	// MaxIterations caps LLM calls per turn.
	MaxIterations int
	// OnTurnEnd receives every finished turn.
	OnTurnEnd func(*chat.TurnState)
}

// Request is one incoming user message.
type Request struct {
	UserID  string
	History []chat.Message
	Message string
}

// Orchestrator runs turns. It is safe for concurrent use; turns share only
// the cache and the collaborators.
type Orchestrator struct {
	deps          Deps
	maxIterations int
	onTurnEnd     func(*chat.TurnState)
	log           zerolog.Logger
}

// New creates an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	return &Orchestrator{
		deps:          deps,
		maxIterations: maxIter,
		onTurnEnd:     opts.OnTurnEnd,
		log:           deps.Logger.With().Str("component", "agent").Logger(),
	}
}

// Run starts a turn and returns its output stream. The turn runs to END even
// when the caller stops reading early.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*schema.StreamReader[string], error) {
	if req.UserID == "" {
		return nil, ErrMissingUser
	}

	state, err := chat.NewTurnState(uuid.NewString(), req.UserID, req.History, req.Message)
	if err != nil {
		return nil, err
	}

	sr, sw := schema.Pipe[string](4)
	go o.run(context.WithoutCancel(ctx), state, sw)
	return sr, nil
}

// turn carries per-run bookkeeping next to the shared TurnState.
type turn struct {
	state      *chat.TurnState
	out        *schema.StreamWriter[string]
	log        zerolog.Logger
	iterations int
	fallback   bool
	detached   bool
}

func (t *turn) emit(chunk string) {
	if chunk == "" || t.detached {
		return
	}
	if closed := t.out.Send(chunk, nil); closed {
		t.detached = true
		t.log.Debug().Msg("client stopped reading, finishing turn silently")
	}
}

func (o *Orchestrator) run(ctx context.Context, state *chat.TurnState, out *schema.StreamWriter[string]) {
	defer out.Close()

	start := time.Now()
	t := &turn{
		state: state,
		out:   out,
		log:   o.log.With().Str("turn_id", state.ID).Str("user_id", state.UserID).Logger(),
	}

	if err := o.drive(ctx, t); err != nil {
		state.Err = err
		t.log.Error().Err(err).Int("iteration", t.iterations).Msg("turn failed")
		t.emit(ApologyAnswer)
	}

	metrics.TurnsTotal.WithLabelValues(outcome(t)).Inc()
	metrics.TurnDuration.Observe(float64(time.Since(start).Milliseconds()))
	if t.iterations > 0 {
		metrics.AgentIterations.Observe(float64(t.iterations))
	}

	if o.onTurnEnd != nil {
		o.onTurnEnd(state)
	}
}

// drive walks the state graph until END.
func (o *Orchestrator) drive(ctx context.Context, t *turn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("turn panicked: %v", r)
		}
	}()

	state := t.state
	current := StateCheckCache
	for current != StateEnd {
		t.log.Debug().Stringer("state", current).Int("iteration", t.iterations).Msg("enter state")

		switch current {
		case StateCheckCache:
			current = StateValidate
			query, _ := state.LatestUser()
			if cache.Normalize(query.Content) == "" || o.deps.Cache == nil {
				continue
			}
			if hit, ok := o.deps.Cache.Get(cache.Key(query.Content)); ok {
				state.Cached = true
				if err := state.Append(chat.Answer(hit)); err != nil {
					return err
				}
				t.emit(hit)
				current = StateFinalize
			}

		case StateValidate:
			query, _ := state.LatestUser()
			res := o.deps.Validator.Validate(query.Content)
			state.Validated = true
			if res.OK {
				current = StateAgent
				continue
			}
			state.ValidationError = true
			t.log.Debug().Str("rule", string(res.Rule)).Msg("input rejected")
			if err := state.Append(chat.Answer(res.Reply)); err != nil {
				return err
			}
			t.emit(res.Reply)
			current = StateFinalize

		case StateAgent:
			if t.iterations >= o.maxIterations {
				t.fallback = true
				t.log.Warn().Int("iteration", t.iterations).Msg("iteration cap reached")
				if err := state.Append(chat.Answer(FallbackAnswer)); err != nil {
					return err
				}
				t.emit(FallbackAnswer)
				current = StateFinalize
				continue
			}
			t.iterations++

			reply, err := o.deps.LLM.Decide(ctx, state.Messages)
			if err != nil {
				return fmt.Errorf("llm decide: %w", err)
			}
			if reply.Role != chat.RoleAssistant {
				return fmt.Errorf("llm returned a %s message", reply.Role)
			}
			if err := state.Append(reply); err != nil {
				return fmt.Errorf("llm reply: %w", err)
			}
			if reply.HasToolCalls() {
				current = StateDispatchTools
				continue
			}
			t.emit(reply.Content)
			current = StateFinalize

		case StateDispatchTools:
			batch, _ := state.LastToolBatch()
			results, err := o.deps.Dispatcher.Dispatch(ctx, batch.ToolCalls, state.UserID)
			if err != nil {
				return fmt.Errorf("dispatch tools: %w", err)
			}
			if err := state.Append(results...); err != nil {
				return fmt.Errorf("tool results: %w", err)
			}
			current = StateSummarize

		case StateSummarize:
			if note, ok := o.deps.Summarizer.Summarize(state); ok {
				if err := state.Append(note); err != nil {
					return err
				}
			}
			current = StateAgent

		case StateFinalize:
			o.writeCache(t)
			current = StateEnd

		default:
			return fmt.Errorf("unknown state %d", current)
		}
	}
	return nil
}

func (o *Orchestrator) writeCache(t *turn) {
	if o.deps.Cache == nil || o.deps.Policy == nil {
		return
	}
	key, answer, ok := o.deps.Policy.Decide(t.state)
	if !ok {
		return
	}
	o.deps.Cache.Set(key, answer)
	t.log.Debug().Str("key", key).Msg("answer cached")
}

func outcome(t *turn) string {
	switch {
	case t.state.Err != nil:
		return metrics.OutcomeFailed
	case t.state.Cached:
		return metrics.OutcomeCached
	case t.state.ValidationError:
		return metrics.OutcomeRejected
	case t.fallback:
		return metrics.OutcomeFallback
	default:
		return metrics.OutcomeAnswered
	}
}
