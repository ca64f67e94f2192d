// Package refine is the entry point of the engine: one call turns an idea
// (and optionally earlier debate plus user feedback) into a parsed document.
package refine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime/debug"

	"focalai/internal/debate"
	"focalai/internal/llm"
	"focalai/internal/prd"
	"focalai/internal/quota"
)

// Result is the only thing a run hands back. On failure Log and Document are
// empty, Sections is nil and UsedFallback is true.
type Result struct {
	Success      bool         `json:"success"`
	Log          debate.Log   `json:"debate_log"`
	Document     string       `json:"prd_content"`
	Sections     prd.Sections `json:"sections,omitempty"`
	UsedFallback bool         `json:"used_fallback"`
	CallsMade    int          `json:"api_calls_made"`
	Error        string       `json:"error,omitempty"`
}

// Engine holds configuration only; every call builds its own tracker.
type Engine struct {
	client         llm.Client
	ceiling        int
	rounds         int
	feedbackRounds int
	parallel       int
	observer       func(debate.Entry)
	logger         *log.Logger
}

type Option func(*Engine)

func WithCeiling(n int) Option { return func(e *Engine) { e.ceiling = n } }

func WithRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.rounds = n
		}
	}
}

func WithFeedbackRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.feedbackRounds = n
		}
	}
}

func WithParallel(n int) Option { return func(e *Engine) { e.parallel = n } }

// WithObserver streams debate entries as each round completes.
func WithObserver(fn func(debate.Entry)) Option {
	return func(e *Engine) { e.observer = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(client llm.Client, opts ...Option) *Engine {
	e := &Engine{
		client:         client,
		ceiling:        quota.DefaultCeiling,
		rounds:         debate.DefaultRounds,
		feedbackRounds: debate.DefaultFeedbackRounds,
		logger:         log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOption adjusts a single call.
type RunOption func(*runConfig)

type runConfig struct {
	observer func(debate.Entry)
}

// Observe streams this call's entries to fn in addition to the engine-wide
// observer.
func Observe(fn func(debate.Entry)) RunOption {
	return func(c *runConfig) { c.observer = fn }
}

// Refine debates idea from scratch.
func (e *Engine) Refine(ctx context.Context, idea string, opts ...RunOption) Result {
	return e.run(ctx, idea, opts, func(o *debate.Orchestrator) (debate.Log, error) {
		return o.RunDebate(ctx, idea, e.rounds)
	})
}

// RefineWithFeedback continues from previous with the user's feedback.
func (e *Engine) RefineWithFeedback(ctx context.Context, idea string, previous debate.Log, feedback string, opts ...RunOption) Result {
	return e.run(ctx, idea, opts, func(o *debate.Orchestrator) (debate.Log, error) {
		return o.RunFeedbackDebate(ctx, idea, previous, feedback, e.feedbackRounds)
	})
}

func (e *Engine) run(ctx context.Context, idea string, opts []RunOption, debateFn func(*debate.Orchestrator) (debate.Log, error)) (res Result) {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}
	tracker := quota.New(e.ceiling)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("refine: panic: %v\n%s", r, debug.Stack())
			res = failure(fmt.Errorf("panic: %v", r), tracker)
		}
	}()

	if e.client == nil {
		return failure(errors.New("refine: no completion client configured"), tracker)
	}

	orch := debate.New(e.client, tracker,
		debate.WithParallel(e.parallel),
		debate.WithObserver(fanOut(e.observer, rc.observer)),
		debate.WithLogger(e.logger),
	)
	entries, err := debateFn(orch)
	if err != nil {
		e.logger.Printf("refine: debate failed: %v", err)
		return failure(err, tracker)
	}

	doc, aggFallback := prd.NewAggregator(e.client, tracker, prd.WithLogger(e.logger)).Aggregate(ctx, idea, entries)
	sections := prd.ParseSections(doc)
	if missing := sections.Missing(); len(missing) > 0 {
		e.logger.Printf("refine: document missing sections %v", missing)
	}

	return Result{
		Success:      true,
		Log:          entries,
		Document:     doc,
		Sections:     sections,
		UsedFallback: entries.UsedFallback() || aggFallback,
		CallsMade:    tracker.Calls(),
	}
}

func failure(err error, tracker *quota.Tracker) Result {
	return Result{
		Success:      false,
		Log:          debate.Log{},
		Document:     "",
		UsedFallback: true,
		CallsMade:    tracker.Calls(),
		Error:        err.Error(),
	}
}

func fanOut(fns ...func(debate.Entry)) func(debate.Entry) {
	var live []func(debate.Entry)
	for _, fn := range fns {
		if fn != nil {
			live = append(live, fn)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return func(e debate.Entry) {
		for _, fn := range live {
			fn(e)
		}
	}
}
