// Package llm is the text-completion capability the debate engine depends
// on. Providers implement Client; cross-cutting concerns (logging, rate
// limiting, timeouts, hooks) are layered on with Middleware.
package llm

import "context"

// Client issues one blocking, single-shot completion per call.
type Client interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
	Close() error
}
