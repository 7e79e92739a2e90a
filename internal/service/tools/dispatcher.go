package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/zhouzirui/shopdesk/backend/internal/metrics"
	"github.com/zhouzirui/shopdesk/backend/internal/model/chat"
)

// ErrMissingUser means the dispatcher was invoked without an authenticated
// identity. It is a wiring bug, not a recoverable condition.
var ErrMissingUser = errors.New("tool dispatch requires an authenticated user id")

// ErrorMarker appears in every tool result produced from a failed call.
const ErrorMarker = "hata oluştu"

// userIDArg is dropped from LLM arguments of user-scoped operations.
const userIDArg = "user_id"

// DispatcherOptions tunes a Dispatcher.
type DispatcherOptions struct {
	Concurrency int
	CallTimeout time.Duration
}

// Dispatcher executes requested operations under the caller's identity.
type Dispatcher struct {
	registry    *Registry
	concurrency int
	callTimeout time.Duration
	log         zerolog.Logger
}

// NewDispatcher builds a Dispatcher over registry.
func NewDispatcher(registry *Registry, opts DispatcherOptions, log zerolog.Logger) *Dispatcher {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		registry:    registry,
		concurrency: concurrency,
		callTimeout: timeout,
		log:         log.With().Str("component", "tools").Logger(),
	}
}

// Registry exposes the operations this dispatcher may run.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs every call and returns one tool result per call, in input
// order. It returns only after all calls have finished. Failures of single
// calls become error results and never abort their siblings.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []chat.ToolCall, userID string) ([]chat.Message, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	results := make([]chat.Message, len(calls))
	p := pool.New().WithMaxGoroutines(d.concurrency)
	for i, call := range calls {
		p.Go(func() {
			content := d.execute(ctx, call, userID)
			results[i] = chat.Message{
				Role:       chat.RoleTool,
				Content:    content,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			}
		})
	}
	p.Wait()

	for _, res := range results {
		if err := res.Validate(); err != nil {
			return nil, fmt.Errorf("malformed tool result: %w", err)
		}
	}
	return results, nil
}

func (d *Dispatcher) execute(ctx context.Context, call chat.ToolCall, userID string) (content string) {
	log := d.log.With().Str("tool", call.Name).Str("call_id", call.ID).Str("user_id", userID).Logger()

	op, ok := d.registry.Lookup(call.Name)
	if !ok {
		metrics.ToolCalls.WithLabelValues("unknown", "unknown").Inc()
		log.Warn().Msg("unknown operation requested")
		return fmt.Sprintf("Hata: '%s' adında tanınmayan bir işlem çağrıldı. Bu işlem kullanılamaz.", call.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.ToolCalls.WithLabelValues(call.Name, "panic").Inc()
			log.Error().Interface("panic", r).Msg("operation panicked")
			content = failureText(call.Name)
		}
	}()

	args := Args(call.Arguments)
	runUser := ""
	if op.Traits().UserScoped {
		if _, forged := args[userIDArg]; forged {
			log.Warn().Msg("ignoring user_id supplied in operation arguments")
		}
		args = args.without(userIDArg)
		runUser = userID
	} else {
		args = args.without()
	}

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	start := time.Now()
	out, err := op.Run(callCtx, args, runUser)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(call.Name, "error").Inc()
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("operation failed")
		return failureText(call.Name)
	}

	metrics.ToolCalls.WithLabelValues(call.Name, "ok").Inc()
	log.Debug().Dur("duration", time.Since(start)).Int("length", len(out)).Msg("operation completed")
	return out
}

func failureText(name string) string {
	return fmt.Sprintf("'%s' işlemi çalıştırılırken bir hata oluştu.", name)
}
