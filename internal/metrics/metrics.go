package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes.
const (
	OutcomeCached   = "cached"
	OutcomeRejected = "rejected"
	OutcomeAnswered = "answered"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_turns_total",
			Help: "Conversational turns by outcome",
		},
		[]string{"outcome"},
	)
	TurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopdesk_turn_duration_milliseconds",
			Help:    "Turn duration in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
	)
	AgentIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopdesk_agent_iterations",
			Help:    "LLM calls per turn",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_cache_lookups_total",
			Help: "Answer cache lookups by result",
		},
		[]string{"result"},
	)
	CacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_cache_evictions_total",
			Help: "Answer cache evictions by reason",
		},
		[]string{"reason"},
	)
	CacheWriteErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopdesk_cache_write_errors_total",
			Help: "Failed writes of the persisted answer cache",
		},
	)
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopdesk_tool_calls_total",
			Help: "Dispatched tool calls by operation and status",
		},
		[]string{"tool", "status"},
	)
)

func init() {
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(AgentIterations)
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(CacheEvictions)
	prometheus.MustRegister(CacheWriteErrors)
	prometheus.MustRegister(ToolCalls)
}
