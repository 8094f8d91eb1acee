package summary

import (
	"context"
	"time"

	"github.com/sells-group/leadledger/internal/resilience"
)

// Resilient retries and circuit-breaks another Completer.
type Resilient struct {
	next    Completer
	policy  resilience.Policy
	breaker *resilience.Breaker
}

// NewResilient wraps next. Only transient failures count against the breaker.
func NewResilient(next Completer, name string, attempts int) *Resilient {
	cfg := resilience.NewBreakerConfig(5, 30*time.Second)
	cfg.ShouldTrip = resilience.IsTransient
	return &Resilient{
		next:    next,
		policy:  resilience.Policy{Attempts: attempts, Jitter: 0.25, Name: "summary." + name},
		breaker: resilience.NewBreaker("summary."+name, cfg),
	}
}

// Complete implements Completer.
func (r *Resilient) Complete(ctx context.Context, prompt string) (string, error) {
	return resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, r.policy, func(ctx context.Context) (string, error) {
			return r.next.Complete(ctx, prompt)
		})
	})
}
