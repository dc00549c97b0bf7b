// Package ratelimit paces batched work. The pipeline inserts a short pause
// between candidate batches as a politeness measure toward providers and
// target sites.
package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter enforces a minimum interval between operations, with optional
// jitter. Safe for concurrent use.
type Limiter struct {
	ticker   *time.Ticker
	ch       <-chan time.Time
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
}

// NewInterval creates a limiter that releases one operation per interval.
// A non-positive interval yields a limiter that never blocks. Jitter is
// clamped to [0,1] and randomizes each pause by up to jitter*interval.
func NewInterval(interval time.Duration, jitter float64) *Limiter {
	if interval <= 0 {
		return &Limiter{}
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	ticker := time.NewTicker(interval)
	return &Limiter{
		ticker:   ticker,
		ch:       ticker.C,
		interval: interval,
		jitter:   jitter,
	}
}

// Pause blocks until the next interval elapses or the context is canceled.
// With jitter configured, a random extra delay of up to jitter*interval is
// added after the tick; negative jitter outcomes release immediately, since
// the ticker already enforces the minimum spacing.
func (l *Limiter) Pause(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
	}

	if l.jitter > 0 {
		factor := rand.Float64()*2 - 1 // -1.0 to 1.0
		extra := time.Duration(float64(l.interval) * l.jitter * factor)
		if extra > 0 {
			select {
			case <-time.After(extra):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// Stop releases the limiter's ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
