// Package ratelimit wraps go.uber.org/ratelimit (the token-bucket
// limiter kaleter101-ksubdomain wires into its scanner) to gate wire
// sends at a configured queries/sec rate, per spec.md §4.4: tokens are
// consumed on every wire send including retries, with burst capacity
// equal to one second of rate.
package ratelimit

import (
	"context"

	uberratelimit "go.uber.org/ratelimit"
)

// Limiter paces wire sends to a target rate.
type Limiter struct {
	lim  uberratelimit.Limiter
	rate int
}

// New builds a Limiter for rate queries/sec. rate<=0 means unlimited.
func New(rate int) *Limiter {
	if rate <= 0 {
		return &Limiter{lim: uberratelimit.NewUnlimited()}
	}
	return &Limiter{
		lim:  uberratelimit.New(rate, uberratelimit.WithSlack(rate)),
		rate: rate,
	}
}

// Rate reports the configured queries/sec (0 means unlimited).
func (l *Limiter) Rate() int { return l.rate }

// Wait blocks until a token is available or ctx is cancelled. This is
// the suspension point spec.md §5 calls out for rate-limit acquisition.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		l.lim.Take()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
