// Package debate runs a fixed panel of personas through sequential rounds of
// critique on one product idea.
package debate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"focalai/internal/fallback"
	"focalai/internal/llm"
	"focalai/internal/persona"
	"focalai/internal/quota"
)

const (
	DefaultRounds         = 4
	DefaultFeedbackRounds = 2
)

var (
	ErrEmptyIdea     = errors.New("debate: idea is empty")
	ErrInvalidRounds = errors.New("debate: rounds must be at least 1")
)

// Orchestrator drives one run. It holds the run's quota tracker, so an
// Orchestrator must not be shared between runs.
type Orchestrator struct {
	client   llm.Client
	tracker  *quota.Tracker
	personas []persona.Persona
	parallel int
	observer func(Entry)
	logger   *log.Logger
}

type Option func(*Orchestrator)

// WithPersonas replaces the registry panel.
func WithPersonas(ps []persona.Persona) Option {
	return func(o *Orchestrator) {
		o.personas = append([]persona.Persona(nil), ps...)
	}
}

// WithParallel lets up to n personas of a round call out concurrently.
// n <= 1 keeps calls sequential.
func WithParallel(n int) Option {
	return func(o *Orchestrator) { o.parallel = n }
}

// WithObserver receives every entry once its round is complete, in log order.
func WithObserver(fn func(Entry)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(client llm.Client, tracker *quota.Tracker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		tracker:  tracker,
		personas: persona.List(),
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracker == nil {
		o.tracker = quota.New(quota.DefaultCeiling)
	}
	return o
}

func (o *Orchestrator) Tracker() *quota.Tracker { return o.tracker }

// RunDebate runs up to rounds rounds. Round r sees the entries of round r-1.
// It stops early after any round that leaves the tracker exhausted.
func (o *Orchestrator) RunDebate(ctx context.Context, idea string, rounds int) (Log, error) {
	if err := validate(idea, rounds); err != nil {
		return nil, err
	}
	if err := o.ready(); err != nil {
		return nil, err
	}
	out := make(Log, 0, rounds*len(o.personas))
	for r := 1; r <= rounds; r++ {
		turn := Turn{Context: out.ByRound(r - 1).Context()}
		entries, err := o.runRound(ctx, idea, r, len(out), turn)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
		if !o.tracker.HasBudget() {
			o.logger.Printf("debate: budget exhausted after round %d (%s)", r, o.tracker.State())
			break
		}
	}
	return out, nil
}

// RunFeedbackDebate continues a previous debate after user feedback. The
// first round sees the whole previous log; later rounds also see the round
// before them. Returned entries carry round numbers and sequence indexes
// that continue the previous log.
func (o *Orchestrator) RunFeedbackDebate(ctx context.Context, idea string, previous Log, feedback string, rounds int) (Log, error) {
	if err := validate(idea, rounds); err != nil {
		return nil, err
	}
	if err := o.ready(); err != nil {
		return nil, err
	}
	prev := previous.Clone()
	prev.Sort()
	history := prev.Context()
	base := RoundBase(prev, len(o.personas))
	seq := prev.MaxSeq() + 1

	out := make(Log, 0, rounds*len(o.personas))
	for r := 1; r <= rounds; r++ {
		round := base + r
		ctxText := history
		if r > 1 {
			ctxText = joinNonEmpty(history, out.ByRound(round-1).Context())
		}
		entries, err := o.runRound(ctx, idea, round, seq+len(out), Turn{Context: ctxText, Feedback: feedback})
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
		if !o.tracker.HasBudget() {
			o.logger.Printf("debate: budget exhausted after round %d (%s)", round, o.tracker.State())
			break
		}
	}
	return out, nil
}

// RoundBase returns the round number a continuation starts after. It is the
// highest round recorded in previous; logs without round numbers fall back
// to ceil(len/panel).
func RoundBase(previous Log, panel int) int {
	if max := previous.MaxRound(); max > 0 {
		return max
	}
	if panel <= 0 || len(previous) == 0 {
		return 0
	}
	return (len(previous) + panel - 1) / panel
}

// AgentResponse returns one persona's answer for one turn and whether it is
// a fallback. Transport failures other than quota signals come back as an
// inline error text, never as an error value.
func (o *Orchestrator) AgentResponse(ctx context.Context, p persona.Persona, idea string, turn Turn) (string, bool) {
	if !o.tracker.TryConsume() {
		return fallback.PersonaResponse(p, idea), true
	}
	text, err := o.client.Complete(llm.WithPhase(ctx, p.Key), p.SystemPrompt, buildPrompt(p, idea, turn))
	if err == nil {
		return text, false
	}
	if llm.IsQuotaExceeded(err) {
		o.tracker.Latch()
		o.logger.Printf("debate: quota signal from %s: %v", p.Name, err)
		return fallback.PersonaResponse(p, idea), true
	}
	o.logger.Printf("debate: %s failed: %v", p.Name, err)
	return inlineError(p, err), false
}

func (o *Orchestrator) runRound(ctx context.Context, idea string, round, seq int, turn Turn) (Log, error) {
	entries := make(Log, len(o.personas))
	fill := func(i int) {
		p := o.personas[i]
		text, fb := o.AgentResponse(ctx, p, idea, turn)
		entries[i] = Entry{
			PersonaKey:  p.Key,
			PersonaName: p.Name,
			Response:    text,
			Round:       round,
			Fallback:    fb,
			Seq:         seq + i,
		}
	}

	if o.parallel > 1 {
		var g errgroup.Group
		g.SetLimit(o.parallel)
		for i := range o.personas {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%s: panic: %v", o.personas[i].Name, r)
					}
				}()
				fill(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		entries.Sort()
	} else {
		for i := range o.personas {
			fill(i)
		}
	}

	if o.observer != nil {
		for _, e := range entries {
			o.observer(e)
		}
	}
	return entries, nil
}

func (o *Orchestrator) ready() error {
	if o.client == nil {
		return errors.New("debate: nil completion client")
	}
	if len(o.personas) == 0 {
		return errors.New("debate: empty persona panel")
	}
	return nil
}

func validate(idea string, rounds int) error {
	if strings.TrimSpace(idea) == "" {
		return ErrEmptyIdea
	}
	if rounds < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRounds, rounds)
	}
	return nil
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
