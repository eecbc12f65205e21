package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Throttle paces calls to a rate-limited upstream.
type Throttle interface {
	Wait(ctx context.Context) error
}

// IntervalThrottle enforces a minimum interval between successive Wait returns.
// The first call never blocks.
type IntervalThrottle struct {
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewIntervalThrottle creates a throttle driven by clock.
func NewIntervalThrottle(clock clockwork.Clock, interval time.Duration) *IntervalThrottle {
	return &IntervalThrottle{clock: clock, interval: interval}
}

func (t *IntervalThrottle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		if d := t.interval - t.clock.Since(t.last); d > 0 {
			if err := sleepWithContext(ctx, t.clock, d); err != nil {
				return err
			}
		}
	}
	t.last = t.clock.Now()
	return nil
}

// NoThrottle never waits.
type NoThrottle struct{}

func (NoThrottle) Wait(ctx context.Context) error { return ctx.Err() }

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
