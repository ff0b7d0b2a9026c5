package response

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ashgrove/mimic/pkg/config"
)

func TestSimulate_NilConfigReturnsImmediately(t *testing.T) {
	start := time.Now()
	err := Simulate(context.Background(), nil)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSimulate_ExactDelay(t *testing.T) {
	start := time.Now()
	err := Simulate(context.Background(), &config.PerformanceConfig{ExactDelayMs: 20})
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSimulate_RangeDelayWithinBounds(t *testing.T) {
	cfg := &config.PerformanceConfig{MinDelayMs: 10, MaxDelayMs: 20}
	for i := 0; i < 5; i++ {
		d := delayFor(cfg)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}
}

func TestSimulate_ContextCancellationInterrupts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := Simulate(ctx, &config.PerformanceConfig{ExactDelayMs: 500})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDelayFor_NoDelayConfigured(t *testing.T) {
	assert.Equal(t, time.Duration(0), delayFor(&config.PerformanceConfig{}))
}
