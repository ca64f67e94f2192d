package llm

import "context"

// PromptHook observes calls that pass through WithHooks.
type PromptHook interface {
	Before(ctx context.Context, phase, system, prompt string)
	After(ctx context.Context, phase, text string, err error)
}

type ctxKeyHook struct{}
type ctxKeyPhase struct{}

// ContextWithHook attaches a PromptHook to ctx.
func ContextWithHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// WithPhase tags ctx with the call's phase (persona key, "aggregate", ...).
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if v := ctx.Value(ctxKeyHook{}); v != nil {
		if h, ok := v.(PromptHook); ok {
			return h
		}
	}
	return nil
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
