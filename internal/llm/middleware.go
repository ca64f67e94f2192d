package llm

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Middleware decorates a Client to inject cross-cutting concerns.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit spaces requests with a token bucket. rps <= 0 disables it.
// Waiting for a token is not a retry: the call is still issued exactly once.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Complete(ctx, system, prompt)
}

// -------- Timeout --------

// WithTimeout bounds every call. A timeout is reported as an ordinary error,
// never as a quota failure. d <= 0 disables it.
func WithTimeout(d time.Duration) Middleware {
	return func(next Client) Client {
		if d <= 0 {
			return next
		}
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next Client
	d    time.Duration
}

func (t *timed) Name() string { return t.next.Name() }
func (t *timed) Close() error { return t.next.Close() }
func (t *timed) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	text, err := t.next.Complete(ctx, system, prompt)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("llm call timed out after %s: %w", t.d, err)
	}
	return text, err
}

// -------- Logging & Hooks --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Complete(ctx context.Context, system, prompt string) (string, error) {
	phase := PhaseFrom(ctx)
	l.log.Printf("LLM request (%s via %s): %d bytes", phase, l.next.Name(), len(system)+len(prompt))
	start := time.Now()
	text, err := l.next.Complete(ctx, system, prompt)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", phase, err)
		return text, err
	}
	l.log.Printf("LLM response (%s): %d bytes in %s", phase, len(text), time.Since(start).Round(time.Millisecond))
	return text, nil
}

// WithHooks calls HookFrom(ctx).Before/After around Complete.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next Client) Client {
		return &hooked{next: next}
	}
}

type hooked struct{ next Client }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }
func (h *hooked) Complete(ctx context.Context, system, prompt string) (string, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, PhaseFrom(ctx), system, prompt)
	}
	text, err := h.next.Complete(ctx, system, prompt)
	if hook != nil {
		hook.After(ctx, PhaseFrom(ctx), text, err)
	}
	return text, err
}
