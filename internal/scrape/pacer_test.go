package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitterPacer_Waits(t *testing.T) {
	t.Parallel()

	p := JitterPacer{Base: 20 * time.Millisecond, Jitter: 10 * time.Millisecond}
	start := time.Now()
	assert.NoError(t, p.Pause(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestJitterPacer_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := JitterPacer{Base: time.Hour}
	assert.ErrorIs(t, p.Pause(ctx), context.Canceled)
}

func TestNoPacer(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NoPacer{}.Pause(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NoPacer{}.Pause(ctx))
}
