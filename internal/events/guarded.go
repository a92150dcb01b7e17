package events

import (
	"context"
	"time"

	"github.com/noah-isme/fidelia-cart/internal/resilience"
)

// Guarded wraps a best-effort notifier with a circuit breaker and a per-call timeout,
// so an unhealthy downstream cannot stall checkout.
type Guarded struct {
	Notifier Notifier
	Breaker  *resilience.Breaker
	Timeout  time.Duration
}

// Notify implements Notifier.
func (g Guarded) Notify(ctx context.Context, event Event) error {
	if g.Notifier == nil {
		return nil
	}
	call := func(ctx context.Context) error {
		if g.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.Timeout)
			defer cancel()
		}
		return g.Notifier.Notify(ctx, event)
	}
	if g.Breaker == nil {
		return call(ctx)
	}
	return g.Breaker.Do(ctx, call)
}
