package resilience

import "time"

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     1 * time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      8,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      15 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// OllamaProfile tunes the executor for embedding and generation calls.
// Those are slow and serialize the ingest pipeline, so retries are few
// and widely spaced, and the breaker trips after a handful of failures
// rather than letting a dead model server stall every chunk.
func OllamaProfile() Config {
	return Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 500 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      20 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// NATSProfile tunes the executor for publishes to the broker. Publishes
// are cheap and the client reconnects on its own, so retries are fast
// and the breaker reopens quickly.
func NATSProfile() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 50 * time.Millisecond,
		RetryMaxBackoff:     200 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      10 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := Config{
		RetryMaxAttempts:    fallbackInt(c.RetryMaxAttempts, def.RetryMaxAttempts),
		RetryInitialBackoff: fallbackDuration(c.RetryInitialBackoff, def.RetryInitialBackoff),
		RetryMaxBackoff:     fallbackDuration(c.RetryMaxBackoff, def.RetryMaxBackoff),
		RetryMultiplier:     c.RetryMultiplier,

		BreakerEnabled:          c.BreakerEnabled,
		BreakerMinRequests:      fallbackUint32(c.BreakerMinRequests, def.BreakerMinRequests),
		BreakerFailureRatio:     c.BreakerFailureRatio,
		BreakerOpenTimeout:      fallbackDuration(c.BreakerOpenTimeout, def.BreakerOpenTimeout),
		BreakerHalfOpenMaxCalls: fallbackUint32(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls),
	}

	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	return out
}

func fallbackInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func fallbackDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func fallbackUint32(v, def uint32) uint32 {
	if v == 0 {
		return def
	}
	return v
}
