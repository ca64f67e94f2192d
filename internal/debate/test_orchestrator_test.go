package debate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"focalai/internal/llm"
	"focalai/internal/persona"
	"focalai/internal/quota"
	"focalai/internal/tester"
)

const fitnessIdea = "A mobile app that helps people find and book local fitness classes"

func assertContiguous(t *testing.T, l Log) {
	t.Helper()
	rounds := l.Rounds()
	for i, r := range rounds {
		tester.Eq(t, r, rounds[0]+i, "rounds contiguous")
		tester.Len(t, l.ByRound(r), persona.PanelSize, "one entry per persona")
	}
}

func assertRegistryOrder(t *testing.T, l Log) {
	t.Helper()
	ps := persona.List()
	for _, r := range l.Rounds() {
		for i, e := range l.ByRound(r) {
			tester.Eq(t, e.PersonaKey, ps[i].Key, "registry order")
		}
	}
}

func TestRunDebateFullBudget(t *testing.T) {
	fake := llm.NewFakeClient()
	o := New(fake, quota.New(quota.DefaultCeiling))
	out, err := o.RunDebate(context.Background(), fitnessIdea, 4)
	tester.NoErr(t, err)
	tester.Len(t, out, 20)
	tester.Eq(t, out.Rounds(), []int{1, 2, 3, 4})
	tester.Eq(t, fake.CallCount(), 20)
	tester.False(t, out.UsedFallback(), "no fallbacks with budget")
	assertContiguous(t, out)
	assertRegistryOrder(t, out)
	for i, e := range out {
		tester.Eq(t, e.Seq, i, "seq is emission order")
	}
}

func TestRunDebateContextIsPreviousRound(t *testing.T) {
	fake := llm.NewFakeClient()
	o := New(fake, quota.New(quota.DefaultCeiling))
	out, err := o.RunDebate(context.Background(), fitnessIdea, 2)
	tester.NoErr(t, err)

	calls := fake.Calls()
	tester.False(t, strings.Contains(calls[0].Prompt, "Previous context:"), "round 1 has no context")
	tester.Contains(t, calls[0].Prompt, "Product Idea: "+fitnessIdea)
	tester.Contains(t, calls[0].Prompt, "As a Product Manager")

	round2 := calls[5].Prompt
	tester.Contains(t, round2, "Previous context: "+out.ByRound(1).Context())
	tester.Contains(t, out.ByRound(1).Context(), "Product Manager: "+out[0].Response+"\n\nDesign Lead: ")
	tester.False(t, strings.Contains(round2, "User feedback:"), "no feedback segment")
}

func TestRunDebateExhaustedStart(t *testing.T) {
	fake := llm.NewFakeClient()
	o := New(fake, quota.New(0))
	out, err := o.RunDebate(context.Background(), fitnessIdea, 4)
	tester.NoErr(t, err)
	tester.Eq(t, fake.CallCount(), 0, "no external calls")
	tester.Len(t, out, persona.PanelSize)
	for _, e := range out {
		tester.True(t, e.Fallback, "every entry is a fallback")
		tester.Eq(t, e.Round, 1)
	}
}

func TestRunDebateNonQuotaErrorIsInline(t *testing.T) {
	fake := llm.NewFakeClient().FailFor("You are an Engineering Lead", errors.New("connection reset"))
	o := New(fake, quota.New(quota.DefaultCeiling))
	out, err := o.RunDebate(context.Background(), fitnessIdea, 1)
	tester.NoErr(t, err)
	tester.Len(t, out, 5)
	eng := out[2]
	tester.Eq(t, eng.PersonaKey, persona.KeyEngineeringLead)
	tester.False(t, eng.Fallback, "inline errors are not fallbacks")
	tester.Eq(t, eng.Response, "Error getting response from Engineering Lead: connection reset")
	tester.Eq(t, fake.CallCount(), 5, "remaining personas still called")
	tester.Eq(t, o.Tracker().State(), quota.Available)
}

func TestRunDebateQuotaMidRound(t *testing.T) {
	// third persona of round two
	fake := llm.NewFakeClient().FailOn(8, errors.New("googleapi: Error 429: Resource has been exhausted"))
	o := New(fake, quota.New(quota.DefaultCeiling))
	out, err := o.RunDebate(context.Background(), fitnessIdea, 4)
	tester.NoErr(t, err)
	tester.Len(t, out, 10, "no round 3")
	tester.Eq(t, out.MaxRound(), 2)
	tester.Eq(t, fake.CallCount(), 8)
	tester.Eq(t, o.Tracker().State(), quota.ExhaustedBySignal)

	r2 := out.ByRound(2)
	tester.False(t, r2[0].Fallback, "persona 1")
	tester.False(t, r2[1].Fallback, "persona 2")
	for _, e := range r2[2:] {
		tester.True(t, e.Fallback, e.PersonaKey+" falls back")
		tester.Contains(t, e.Response, fitnessIdea)
	}
	assertContiguous(t, out)
}

func TestRunDebateCeilingStopsAfterRound(t *testing.T) {
	fake := llm.NewFakeClient()
	o := New(fake, quota.New(7))
	out, err := o.RunDebate(context.Background(), fitnessIdea, 4)
	tester.NoErr(t, err)
	tester.Len(t, out, 10)
	tester.Eq(t, fake.CallCount(), 7)
	tester.Eq(t, o.Tracker().State(), quota.ExhaustedByCeiling)
	tester.Eq(t, len(out)%persona.PanelSize, 0)
	tester.False(t, out[6].Fallback, "seventh call was real")
	tester.True(t, out[7].Fallback, "eighth had no budget")
}

func TestRunDebateLengthProperty(t *testing.T) {
	for _, ceiling := range []int{0, 1, 4, 5, 6, 12, 20, 45} {
		for _, rounds := range []int{1, 2, 3, 4} {
			o := New(llm.NewFakeClient(), quota.New(ceiling))
			out, err := o.RunDebate(context.Background(), "idea", rounds)
			tester.NoErr(t, err)
			completed := len(out.Rounds())
			tester.Eq(t, len(out), persona.PanelSize*completed)
			tester.True(t, completed <= rounds, "never more rounds than requested")
			if completed > 0 {
				tester.Eq(t, out.Rounds()[0], 1, "starts at round one")
			}
			assertContiguous(t, out)
		}
	}
}

func TestRunDebateValidation(t *testing.T) {
	o := New(llm.NewFakeClient(), nil)
	_, err := o.RunDebate(context.Background(), "  ", 2)
	tester.ErrIs(t, err, ErrEmptyIdea)
	_, err = o.RunDebate(context.Background(), "idea", 0)
	tester.ErrIs(t, err, ErrInvalidRounds)
	_, err = New(nil, nil).RunDebate(context.Background(), "idea", 1)
	tester.True(t, err != nil, "nil client rejected")
}

func TestRunFeedbackDebateRoundNumbering(t *testing.T) {
	prevO := New(llm.NewFakeClient(), quota.New(quota.DefaultCeiling))
	prev, err := prevO.RunDebate(context.Background(), fitnessIdea, 3)
	tester.NoErr(t, err)
	tester.Len(t, prev, 15)

	fake := llm.NewFakeClient()
	o := New(fake, quota.New(quota.DefaultCeiling))
	out, err := o.RunFeedbackDebate(context.Background(), fitnessIdea, prev, "Add a waitlist", 2)
	tester.NoErr(t, err)
	tester.Len(t, out, 10)
	tester.Eq(t, out.Rounds(), []int{4, 5})
	tester.Eq(t, out[0].Seq, 15, "seq continues the previous log")
	assertRegistryOrder(t, out)

	calls := fake.Calls()
	first := calls[0].Prompt
	tester.Contains(t, first, "Previous context: "+prev.Context())
	tester.Contains(t, first, "User feedback: Add a waitlist")

	later := calls[5].Prompt
	tester.Contains(t, later, prev.Context()+"\n\n"+out.ByRound(4).Context())
	tester.Contains(t, later, "User feedback: Add a waitlist")
}

func TestRunFeedbackDebateExhaustedStart(t *testing.T) {
	prev := make(Log, 0, 15)
	for r := 1; r <= 3; r++ {
		for i, p := range persona.List() {
			prev = append(prev, Entry{PersonaKey: p.Key, PersonaName: p.Name, Response: "x", Round: r, Seq: (r-1)*5 + i})
		}
	}
	fake := llm.NewFakeClient()
	o := New(fake, quota.New(0))
	out, err := o.RunFeedbackDebate(context.Background(), "idea", prev, "feedback", 2)
	tester.NoErr(t, err)
	tester.Eq(t, fake.CallCount(), 0)
	tester.Len(t, out, 5)
	for _, e := range out {
		tester.Eq(t, e.Round, 4, "single synthetic round")
		tester.True(t, e.Fallback, "fallback")
	}
}

func TestRoundBase(t *testing.T) {
	tester.Eq(t, RoundBase(nil, 5), 0)
	partial := Log{{Round: 1}, {Round: 1}, {Round: 1}, {Round: 1}, {Round: 1}, {Round: 2}, {Round: 2}}
	tester.Eq(t, RoundBase(partial, 5), 2, "highest recorded round wins")
	unnumbered := make(Log, 7)
	tester.Eq(t, RoundBase(unnumbered, 5), 2, "ceil for logs without rounds")
}

func TestParallelMatchesSequential(t *testing.T) {
	seq := New(llm.NewFakeClient(), quota.New(quota.DefaultCeiling))
	a, err := seq.RunDebate(context.Background(), fitnessIdea, 3)
	tester.NoErr(t, err)

	par := New(llm.NewFakeClient(), quota.New(quota.DefaultCeiling), WithParallel(5))
	b, err := par.RunDebate(context.Background(), fitnessIdea, 3)
	tester.NoErr(t, err)

	tester.Len(t, b, len(a))
	for i := range a {
		tester.Eq(t, b[i].PersonaKey, a[i].PersonaKey)
		tester.Eq(t, b[i].Round, a[i].Round)
		tester.Eq(t, b[i].Seq, a[i].Seq)
	}
}

func TestParallelNeverOvershootsCeiling(t *testing.T) {
	fake := llm.NewFakeClient()
	o := New(fake, quota.New(3), WithParallel(5))
	out, err := o.RunDebate(context.Background(), fitnessIdea, 4)
	tester.NoErr(t, err)
	tester.Eq(t, fake.CallCount(), 3)
	tester.Len(t, out, 5)
	fallbacks := 0
	for _, e := range out {
		if e.Fallback {
			fallbacks++
		}
	}
	tester.Eq(t, fallbacks, 2)
}

func TestObserverSeesEntriesInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen Log
	o := New(llm.NewFakeClient(), quota.New(quota.DefaultCeiling), WithParallel(3), WithObserver(func(e Entry) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	}))
	out, err := o.RunDebate(context.Background(), "idea", 2)
	tester.NoErr(t, err)
	tester.Eq(t, seen, out)
}

func TestCanceledContextBecomesInlineError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(llm.NewFakeClient(), quota.New(quota.DefaultCeiling))
	out, err := o.RunDebate(ctx, "idea", 1)
	tester.NoErr(t, err)
	for _, e := range out {
		tester.True(t, strings.HasPrefix(e.Response, ErrorPrefix), "inline error")
		tester.False(t, e.Fallback, "not a fallback")
	}
}
