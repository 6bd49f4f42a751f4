package scrape

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer inserts delays between outbound requests.
type Pacer interface {
	Pause(ctx context.Context) error
}

// JitterPacer sleeps for Base plus a uniformly random duration in [0, Jitter).
type JitterPacer struct {
	Base   time.Duration
	Jitter time.Duration
}

// Pause blocks for the next delay or until ctx is done.
func (p JitterPacer) Pause(ctx context.Context) error {
	d := p.Base
	if p.Jitter > 0 {
		d += rand.N(p.Jitter)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Pause(ctx context.Context) error { return ctx.Err() }
