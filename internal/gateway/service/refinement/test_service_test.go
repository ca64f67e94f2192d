package refinement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focalai/internal/debate"
	"focalai/internal/gateway/entity"
	artifactrepo "focalai/internal/gateway/repository/artifact"
	idearepo "focalai/internal/gateway/repository/idea"
	"focalai/internal/gateway/service/credits"
	"focalai/internal/llm"
	"focalai/internal/refine"
)

const fitnessIdea = "A mobile app that helps people find and book local fitness classes"

type fixture struct {
	svc       *Service
	ideas     *idearepo.MemoryStore
	artifacts *artifactrepo.MemoryStore
	ledger    *credits.MemoryLedger
}

func newFixture(t *testing.T, engine Engine, initial int) fixture {
	t.Helper()
	f := fixture{
		ideas:     idearepo.NewMemoryStore(),
		artifacts: artifactrepo.NewMemoryStore(),
		ledger:    credits.NewMemoryLedger(initial),
	}
	if engine == nil {
		engine = refine.New(llm.NewFakeClient())
	}
	f.svc = New(Deps{
		Engine:    engine,
		Ideas:     f.ideas,
		Artifacts: f.artifacts,
		Ledger:    f.ledger,
		Costs:     Costs{Idea: credits.DefaultIdeaCost, Feedback: credits.DefaultFeedbackCost},
	})
	return f
}

type failingEngine struct{}

func (failingEngine) Refine(context.Context, string, ...refine.RunOption) refine.Result {
	return refine.Result{Success: false, UsedFallback: true, Error: "boom"}
}

func (failingEngine) RefineWithFeedback(context.Context, string, debate.Log, string, ...refine.RunOption) refine.Result {
	return refine.Result{Success: false, UsedFallback: true, Error: "boom"}
}

// gatedEngine holds feedback runs until release is closed.
type gatedEngine struct {
	Engine
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEngine) RefineWithFeedback(ctx context.Context, idea string, previous debate.Log, feedback string, opts ...refine.RunOption) refine.Result {
	g.entered <- struct{}{}
	<-g.release
	return g.Engine.RefineWithFeedback(ctx, idea, previous, feedback, opts...)
}

// racingIdeas makes the first two idea lookups wait for each other.
type racingIdeas struct {
	*idearepo.MemoryStore
	arrived sync.WaitGroup
}

func (r *racingIdeas) GetIdea(ctx context.Context, id string) (entity.Idea, error) {
	r.arrived.Done()
	r.arrived.Wait()
	return r.MemoryStore.GetIdea(ctx, id)
}

func balance(t *testing.T, l credits.Ledger, user string) int {
	t.Helper()
	bal, err := l.Balance(context.Background(), entity.UserID(user))
	require.NoError(t, err)
	return bal
}

func TestRefinePersistsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, 10)

	out, err := f.svc.Refine(ctx, RefineRequest{UserID: "u1", Idea: fitnessIdea})
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Equal(t, 8, out.Balance)
	assert.Equal(t, 0, out.Document.Iteration)
	assert.True(t, out.Document.Sections.Complete())

	stored, err := f.ideas.Debate(ctx, out.Idea.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 20)

	docs, err := f.ideas.Documents(ctx, out.Idea.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{
		"iteration-0/document.md",
		"iteration-0/document.html",
		"iteration-0/document.yaml",
	}, docs[0].Artifacts)

	md, err := f.artifacts.Get(ctx, out.Idea.ID, "iteration-0/document.md")
	require.NoError(t, err)
	assert.Contains(t, string(md), "## 1. Overview")
}

func TestRefineStreamsEvents(t *testing.T) {
	f := newFixture(t, nil, 10)
	events, cancel := f.svc.Events().Subscribe("idea-live")
	defer cancel()

	_, err := f.svc.Refine(context.Background(), RefineRequest{UserID: "u1", Idea: fitnessIdea, IdeaID: "idea-live"})
	require.NoError(t, err)

	var got []EventType
	deadline := time.After(time.Second)
	for len(got) < 22 {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
		case <-deadline:
			t.Fatalf("timed out after %d events", len(got))
		}
	}
	assert.Equal(t, EventStarted, got[0])
	assert.Equal(t, EventEntry, got[1])
	assert.Equal(t, EventCompleted, got[21])
}

func TestRefineRejectsDuplicateIdeaID(t *testing.T) {
	f := newFixture(t, nil, 10)
	_, err := f.svc.Refine(context.Background(), RefineRequest{UserID: "u1", Idea: fitnessIdea, IdeaID: "fixed"})
	require.NoError(t, err)

	_, err = f.svc.Refine(context.Background(), RefineRequest{UserID: "u2", Idea: "other", IdeaID: "fixed"})
	assert.ErrorIs(t, err, ErrIdeaExists)
	assert.Equal(t, 10, balance(t, f.ledger, "u2"), "nothing charged")
}

func TestRefineSharedIdeaIDHasOneOwner(t *testing.T) {
	ctx := context.Background()
	store := &racingIdeas{MemoryStore: idearepo.NewMemoryStore()}
	store.arrived.Add(2)
	ledger := credits.NewMemoryLedger(10)
	svc := New(Deps{
		Engine: refine.New(llm.NewFakeClient()),
		Ideas:  store,
		Ledger: ledger,
		Costs:  Costs{Idea: credits.DefaultIdeaCost, Feedback: credits.DefaultFeedbackCost},
	})

	users := []string{"alice", "mallory"}
	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Refine(ctx, RefineRequest{UserID: u, Idea: "idea of " + u, IdeaID: "shared"})
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "only one run may create the idea")
			winner = i
			continue
		}
		assert.ErrorIs(t, err, ErrIdeaExists)
	}
	require.NotEqual(t, -1, winner)
	owner, loser := users[winner], users[1-winner]

	got, err := store.MemoryStore.GetIdea(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, entity.UserID(owner), got.UserID)
	assert.Equal(t, "idea of "+owner, got.Text)

	entries, err := store.Debate(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, entries, 20)
	docs, err := store.Documents(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	assert.Equal(t, 8, balance(t, ledger, owner))
	assert.Equal(t, 10, balance(t, ledger, loser))
}

func TestRefineValidation(t *testing.T) {
	f := newFixture(t, nil, 10)
	_, err := f.svc.Refine(context.Background(), RefineRequest{UserID: "u1", Idea: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Feedback(context.Background(), FeedbackRequest{UserID: "u1", IdeaID: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRefineInsufficientCredits(t *testing.T) {
	f := newFixture(t, nil, 1)
	_, err := f.svc.Refine(context.Background(), RefineRequest{UserID: "u1", Idea: fitnessIdea})
	assert.ErrorIs(t, err, credits.ErrInsufficient)

	history, err := f.svc.History(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRefineFailureRefunds(t *testing.T) {
	f := newFixture(t, failingEngine{}, 10)
	out, err := f.svc.Refine(context.Background(), RefineRequest{UserID: "u1", Idea: fitnessIdea})
	assert.ErrorIs(t, err, ErrFailed)
	require.NotNil(t, out)
	assert.False(t, out.Result.Success)
	assert.Equal(t, 10, balance(t, f.ledger, "u1"))

	txs, err := f.ledger.Transactions(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, credits.ReasonRefund, txs[0].Reason)
}

func TestFeedbackContinuesDebate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, 10)
	first, err := f.svc.Refine(ctx, RefineRequest{UserID: "u1", Idea: fitnessIdea})
	require.NoError(t, err)

	next, err := f.svc.Feedback(ctx, FeedbackRequest{UserID: "u1", IdeaID: first.Idea.ID, Feedback: "Focus on yoga studios"})
	require.NoError(t, err)
	assert.Equal(t, 1, next.Document.Iteration)
	assert.Equal(t, "Focus on yoga studios", next.Document.Feedback)
	assert.Equal(t, []int{5, 6}, next.Result.Log.Rounds())
	assert.Equal(t, 7, next.Balance)

	detail, err := f.svc.Detail(ctx, "u1", first.Idea.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Debate, 30)
	assert.Len(t, detail.Documents, 2)
	assert.Equal(t, 29, detail.Debate[len(detail.Debate)-1].Seq)
}

func TestFeedbackRunsOneAtATimePerIdea(t *testing.T) {
	ctx := context.Background()
	gate := &gatedEngine{
		Engine:  refine.New(llm.NewFakeClient()),
		entered: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	f := newFixture(t, gate, 10)
	first, err := f.svc.Refine(ctx, RefineRequest{UserID: "u1", Idea: fitnessIdea})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Feedback(ctx, FeedbackRequest{UserID: "u1", IdeaID: first.Idea.ID, Feedback: "Focus on yoga studios"})
		done <- err
	}()
	<-gate.entered

	_, err = f.svc.Feedback(ctx, FeedbackRequest{UserID: "u1", IdeaID: first.Idea.ID, Feedback: "Focus on pilates"})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 7, balance(t, f.ledger, "u1"), "rejected cycle is not charged")

	close(gate.release)
	require.NoError(t, <-done)

	next, err := f.svc.Feedback(ctx, FeedbackRequest{UserID: "u1", IdeaID: first.Idea.ID, Feedback: "Focus on pilates"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.Document.Iteration)
	assert.Equal(t, []int{7, 8}, next.Result.Log.Rounds())

	detail, err := f.svc.Detail(ctx, "u1", first.Idea.ID)
	require.NoError(t, err)
	require.Len(t, detail.Debate, 40)
	assert.Len(t, detail.Documents, 3)
	perRound := map[int]int{}
	for i, e := range detail.Debate {
		assert.Equal(t, i, e.Seq)
		perRound[e.Round]++
	}
	for round := 1; round <= 8; round++ {
		assert.Equal(t, 5, perRound[round], "round %d", round)
	}
}

func TestFeedbackChecksOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, 10)
	first, err := f.svc.Refine(ctx, RefineRequest{UserID: "u1", Idea: fitnessIdea})
	require.NoError(t, err)

	_, err = f.svc.Feedback(ctx, FeedbackRequest{UserID: "intruder", IdeaID: first.Idea.ID, Feedback: "mine now"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 10, balance(t, f.ledger, "intruder"))

	_, err = f.svc.Detail(ctx, "intruder", first.Idea.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Feedback(ctx, FeedbackRequest{UserID: "u1", IdeaID: "missing", Feedback: "x"})
	assert.ErrorIs(t, err, idearepo.ErrNotFound)
}

func TestAuthorizeWatchers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, 10)
	out, err := f.svc.Refine(ctx, RefineRequest{UserID: "u1", Idea: fitnessIdea, IdeaID: "watched"})
	require.NoError(t, err)
	assert.Equal(t, "u1", out.Idea.UserID.String())

	user, err := f.svc.Authorize(ctx, " u1 ", "watched")
	require.NoError(t, err)
	assert.Equal(t, entity.UserID("u1"), user)

	_, err = f.svc.Authorize(ctx, "u2", "watched")
	assert.ErrorIs(t, err, ErrForbidden)

	user, err = f.svc.Authorize(ctx, "u2", "not-yet-created")
	require.NoError(t, err)
	assert.Equal(t, entity.UserID("u2"), user)
}

func TestBroadcasterDropsOldestForSlowSubscribers(t *testing.T) {
	b := NewBroadcaster()
	events, cancel := b.Subscribe("i1")
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(Event{Type: EventEntry, IdeaID: "i1", Iteration: i})
	}
	first := <-events
	assert.Equal(t, 10, first.Iteration)
	assert.Equal(t, 1, b.Subscribers("i1"))

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers("i1"))
	b.Publish(Event{Type: EventEntry, IdeaID: "i1"})
}

func TestArtifactAndTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, 10)
	out, err := f.svc.Refine(ctx, RefineRequest{UserID: "u1", Idea: fitnessIdea})
	require.NoError(t, err)

	raw, err := f.svc.Artifact(ctx, "u1", out.Idea.ID, "iteration-0/document.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "iteration: 0")

	_, err = f.svc.Artifact(ctx, "u2", out.Idea.ID, "iteration-0/document.yaml")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Artifact(ctx, "u1", out.Idea.ID, "iteration-9/document.md")
	assert.ErrorIs(t, err, artifactrepo.ErrNotFound)

	txs, err := f.svc.Transactions(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, -2, txs[0].Delta)
}
