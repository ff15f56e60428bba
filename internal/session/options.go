package session

import (
	"log/slog"
	"time"
)

// Config configures the engine's per-turn behavior: iteration/tool limits,
// the empty-response retry policy, and per-turn timeout.
type Config struct {
	// MaxIterations is defaulted to 10 but is not read by Engine.Process,
	// which makes one model call (plus empty-response retries) and one tool
	// dispatch per turn.
	MaxIterations int

	// MaxTokens is the default max tokens requested from the model.
	// Default: 4096.
	MaxTokens int

	// EmptyResponseRetries is the number of times an empty stream
	// (finish_reason=stop, no deltas) is retried before surfacing
	// empty_response. Default: 3.
	EmptyResponseRetries int

	// EmptyResponseBackoff is the base backoff between empty-response
	// retries; attempt n waits EmptyResponseBackoff*n (1s, 2s, 3s for the
	// default 1s base). Default: 1s.
	EmptyResponseBackoff time.Duration

	// PerTurnTimeout bounds the complete turn — stream, tool dispatch, and
	// retries together. Zero means no bound beyond the caller's context.
	PerTurnTimeout time.Duration

	// ToolParallelism is defaulted to 5 but is not passed to the executor;
	// tool concurrency is bounded by the toolregistry.Executor's own
	// ExecutorConfig.MaxConcurrency.
	ToolParallelism int

	// ToolTimeout is defaulted to 30s but is not passed to the executor;
	// per-call timeouts come from the toolregistry.Executor's
	// ExecutorConfig.DefaultTimeout and per-tool ToolConfig.
	ToolTimeout time.Duration

	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the baseline engine configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:        10,
		MaxTokens:            4096,
		EmptyResponseRetries: 3,
		EmptyResponseBackoff: time.Second,
		ToolParallelism:      5,
		ToolTimeout:          30 * time.Second,
		Logger:               slog.Default(),
	}
}

func sanitizeConfig(cfg *Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	merged := *cfg
	defaults := DefaultConfig()
	if merged.MaxIterations <= 0 {
		merged.MaxIterations = defaults.MaxIterations
	}
	if merged.MaxTokens <= 0 {
		merged.MaxTokens = defaults.MaxTokens
	}
	if merged.EmptyResponseRetries <= 0 {
		merged.EmptyResponseRetries = defaults.EmptyResponseRetries
	}
	if merged.EmptyResponseBackoff <= 0 {
		merged.EmptyResponseBackoff = defaults.EmptyResponseBackoff
	}
	if merged.ToolParallelism <= 0 {
		merged.ToolParallelism = defaults.ToolParallelism
	}
	if merged.ToolTimeout <= 0 {
		merged.ToolTimeout = defaults.ToolTimeout
	}
	if merged.Logger == nil {
		merged.Logger = defaults.Logger
	}
	return &merged
}

// Overrides lets a single call to Process override the session's default
// model, system prompt, and tool visibility without mutating session state.
type Overrides struct {
	Model  string
	System string

	// Tools, when non-empty, intersects the agent's resolved tool visibility
	// down to this list for this call only (spec §4.1 step 2).
	Tools []string
}
