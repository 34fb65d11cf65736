package provider

import (
	"context"
	"fmt"

	"github.com/Cyclone1070/reactor/internal/message"
	"golang.org/x/time/rate"
)

// RateLimited delays Send calls so the wrapped adapter is called at most at
// the limiter's rate. Tokenize is not limited.
type RateLimited struct {
	Adapter
	limiter *rate.Limiter
}

// WithRequestsPerMinute wraps a with a limiter allowing rpm calls per minute.
// A non-positive rpm returns a unchanged.
func WithRequestsPerMinute(a Adapter, rpm int) Adapter {
	if rpm <= 0 {
		return a
	}
	return &RateLimited{
		Adapter: a,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

// Send implements Adapter.
func (r *RateLimited) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return r.Adapter.Send(ctx, req)
}

// Tokenize implements Adapter.
func (r *RateLimited) Tokenize(ctx context.Context, window []message.ChatMessage) (int, error) {
	return r.Adapter.Tokenize(ctx, window)
}

// ContextSize forwards to the wrapped adapter when it knows its context size
// and reports zero otherwise.
func (r *RateLimited) ContextSize(ctx context.Context) (int, error) {
	if cs, ok := r.Adapter.(ContextSizer); ok {
		return cs.ContextSize(ctx)
	}
	return 0, nil
}
