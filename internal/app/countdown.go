package app

import (
	"context"
	"time"
)

// Countdown ticks down a per-question time budget. It stops when its context
// is cancelled, when Stop is called, or after signalling expiry.
type Countdown struct {
	ticks   chan int
	expired chan struct{}
	stop    context.CancelFunc
	done    chan struct{}
}

// StartCountdown counts seconds down to zero, one tick per interval.
func StartCountdown(ctx context.Context, seconds int, interval time.Duration) *Countdown {
	ctx, cancel := context.WithCancel(ctx)
	c := &Countdown{
		ticks:   make(chan int, 1),
		expired: make(chan struct{}),
		stop:    cancel,
		done:    make(chan struct{}),
	}
	go c.run(ctx, seconds, interval)
	return c
}

// Ticks delivers the seconds left after each interval. Stale ticks are dropped.
func (c *Countdown) Ticks() <-chan int { return c.ticks }

// Expired is closed when the budget runs out.
func (c *Countdown) Expired() <-chan struct{} { return c.expired }

// Stop cancels the countdown and waits for it to exit. Safe to call more than once.
func (c *Countdown) Stop() {
	c.stop()
	<-c.done
}

func (c *Countdown) run(ctx context.Context, seconds int, interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	remaining := seconds
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining--
			select {
			case <-c.ticks:
			default:
			}
			c.ticks <- remaining
		}
	}

	select {
	case <-ctx.Done():
	default:
		close(c.expired)
	}
}
