package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting session-engine
// metrics: turn throughput, tool dispatch latency, retry counts, and
// channel-storage eviction counts.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.TurnStarted("telegram")
//	defer metrics.TurnCompleted("telegram", "ok", time.Since(start).Seconds())
type Metrics struct {
	// TurnCounter tracks turns by channel and outcome (ok|error|empty_response).
	TurnCounter *prometheus.CounterVec

	// TurnDuration measures end-to-end turn latency in seconds.
	TurnDuration *prometheus.HistogramVec

	// ActiveTurns is a gauge of turns currently in flight.
	ActiveTurns *prometheus.GaugeVec

	// ToolDispatchCounter counts tool dispatches by tool name, strategy,
	// and status (success|error).
	ToolDispatchCounter *prometheus.CounterVec

	// ToolDispatchDuration measures per-tool execution time in seconds.
	ToolDispatchDuration *prometheus.HistogramVec

	// RetryCounter counts retry attempts by component and reason.
	RetryCounter *prometheus.CounterVec

	// ChannelEvictionCounter counts circular-buffer evictions in channel
	// storage, labeled by channel.
	ChannelEvictionCounter *prometheus.CounterVec

	// ModelRequestDuration measures model-service request latency.
	ModelRequestDuration *prometheus.HistogramVec

	// ModelRequestCounter counts model-service requests by provider,
	// model, and status.
	ModelRequestCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics. Call once at
// application startup.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_turns_total",
				Help: "Total number of turns processed by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),

		TurnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "session_turn_duration_seconds",
				Help:    "Duration of a full turn (stream + dispatch + commit) in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"channel"},
		),

		ActiveTurns: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "session_active_turns",
				Help: "Current number of turns being processed by channel",
			},
			[]string{"channel"},
		),

		ToolDispatchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_dispatch_total",
				Help: "Total number of tool dispatches by tool name, strategy, and status",
			},
			[]string{"tool_name", "strategy", "status"},
		),

		ToolDispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_dispatch_duration_seconds",
				Help:    "Duration of individual tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		RetryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retry_attempts_total",
				Help: "Total number of retry attempts by component and reason",
			},
			[]string{"component", "reason"},
		),

		ChannelEvictionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "channel_storage_evictions_total",
				Help: "Total number of circular-buffer evictions in channel storage",
			},
			[]string{"channel"},
		),

		ModelRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "model_request_duration_seconds",
				Help:    "Duration of model-service requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		ModelRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_requests_total",
				Help: "Total number of model-service requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
	}
}

// TurnStarted increments the active-turns gauge for channel.
func (m *Metrics) TurnStarted(channel string) {
	m.ActiveTurns.WithLabelValues(channel).Inc()
}

// TurnCompleted decrements the active-turns gauge, records duration, and
// increments the outcome counter.
func (m *Metrics) TurnCompleted(channel, outcome string, durationSeconds float64) {
	m.ActiveTurns.WithLabelValues(channel).Dec()
	m.TurnCounter.WithLabelValues(channel, outcome).Inc()
	m.TurnDuration.WithLabelValues(channel).Observe(durationSeconds)
}

// RecordToolDispatch records a single tool execution's outcome and latency.
func (m *Metrics) RecordToolDispatch(toolName, strategy, status string, durationSeconds float64) {
	m.ToolDispatchCounter.WithLabelValues(toolName, strategy, status).Inc()
	m.ToolDispatchDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordRetry increments the retry counter for a component/reason pair.
func (m *Metrics) RecordRetry(component, reason string) {
	m.RetryCounter.WithLabelValues(component, reason).Inc()
}

// RecordChannelEviction increments the channel-storage eviction counter.
func (m *Metrics) RecordChannelEviction(channel string) {
	m.ChannelEvictionCounter.WithLabelValues(channel).Inc()
}

// RecordModelRequest records metrics for a model-service request.
func (m *Metrics) RecordModelRequest(provider, model, status string, durationSeconds float64) {
	m.ModelRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.ModelRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}
