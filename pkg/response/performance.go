package response

import (
	"context"
	"math/rand"
	"time"

	"github.com/ashgrove/mimic/pkg/config"
)

// Simulate blocks for the latency cfg describes, returning early if ctx
// is cancelled first. A nil cfg or a cfg with no delay configured
// returns immediately.
func Simulate(ctx context.Context, cfg *config.PerformanceConfig) error {
	d := delayFor(cfg)
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// delayFor picks the delay cfg describes: ExactDelayMs when set, else a
// uniform random duration in [MinDelayMs, MaxDelayMs) when both bounds
// are usable. The upper bound is exclusive, matching
// config.PerformanceConfig's documented behaviour.
func delayFor(cfg *config.PerformanceConfig) time.Duration {
	if cfg == nil {
		return 0
	}
	if cfg.ExactDelayMs > 0 {
		return time.Duration(cfg.ExactDelayMs) * time.Millisecond
	}
	if cfg.MinDelayMs > 0 && cfg.MaxDelayMs >= cfg.MinDelayMs {
		span := cfg.MaxDelayMs - cfg.MinDelayMs
		ms := cfg.MinDelayMs
		if span > 0 {
			ms += rand.Intn(span)
		}
		return time.Duration(ms) * time.Millisecond
	}
	return 0
}
