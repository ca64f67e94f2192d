// Package refinement runs the debate engine on behalf of users: it meters
// credits, persists ideas, debates and documents, and streams progress.
package refinement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"focalai/internal/debate"
	"focalai/internal/gateway/entity"
	artifactrepo "focalai/internal/gateway/repository/artifact"
	idearepo "focalai/internal/gateway/repository/idea"
	"focalai/internal/gateway/service/credits"
	"focalai/internal/prd"
	"focalai/internal/refine"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("idea belongs to another user")
	ErrIdeaExists   = errors.New("idea already exists")
	ErrBusy         = errors.New("idea has a refinement in progress")
	ErrFailed       = errors.New("refinement failed")
)

// Engine is the part of refine.Engine the service drives.
type Engine interface {
	Refine(ctx context.Context, idea string, opts ...refine.RunOption) refine.Result
	RefineWithFeedback(ctx context.Context, idea string, previous debate.Log, feedback string, opts ...refine.RunOption) refine.Result
}

var _ Engine = (*refine.Engine)(nil)

type Costs struct {
	Idea     int
	Feedback int
}

type Deps struct {
	Engine    Engine
	Ideas     idearepo.Store
	Artifacts artifactrepo.Store
	Ledger    credits.Ledger
	Costs     Costs
	Events    *Broadcaster
	Logger    *log.Logger
}

type Service struct {
	engine    Engine
	ideas     idearepo.Store
	artifacts artifactrepo.Store
	ledger    credits.Ledger
	costs     Costs
	events    *Broadcaster
	logger    *log.Logger

	runMu   sync.Mutex
	running map[string]struct{}
}

func New(deps Deps) *Service {
	s := &Service{
		engine:    deps.Engine,
		ideas:     deps.Ideas,
		artifacts: deps.Artifacts,
		ledger:    deps.Ledger,
		costs:     deps.Costs,
		events:    deps.Events,
		logger:    deps.Logger,
		running:   make(map[string]struct{}),
	}
	if s.events == nil {
		s.events = NewBroadcaster()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	return s
}

func (s *Service) Events() *Broadcaster { return s.events }

type RefineRequest struct {
	UserID string
	Idea   string
	// IdeaID lets a client pick the id up front so it can subscribe to
	// live events before the run starts. Empty means generate one.
	IdeaID string
}

type FeedbackRequest struct {
	UserID   string
	IdeaID   string
	Feedback string
}

// Outcome is what a successful or failed run hands back to callers.
type Outcome struct {
	Idea         entity.Idea       `json:"idea"`
	Document     entity.Document   `json:"document"`
	Result       refine.Result     `json:"result"`
	Balance      int               `json:"credits_remaining"`
	ArtifactURLs map[string]string `json:"artifact_urls,omitempty"`
}

func (s *Service) Refine(ctx context.Context, req RefineRequest) (*Outcome, error) {
	text := strings.TrimSpace(req.Idea)
	if text == "" {
		return nil, fmt.Errorf("%w: idea is required", ErrInvalidInput)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	user := entity.NormalizeUserID(req.UserID)

	idea := entity.NewIdea(user, text)
	idea.ID = strings.TrimSpace(req.IdeaID)
	if idea.ID == "" {
		idea.ID = uuid.NewString()
	} else if _, err := s.ideas.GetIdea(ctx, idea.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrIdeaExists, idea.ID)
	} else if !errors.Is(err, idearepo.ErrNotFound) {
		return nil, err
	}
	release, err := s.claim(idea.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIdeaExists, idea.ID)
	}
	defer release()

	ch, err := s.deduct(ctx, user, s.costs.Idea, credits.ReasonIdea)
	if err != nil {
		return nil, err
	}
	saved, err := s.ideas.CreateIdea(ctx, idea)
	if err != nil {
		ch.refund(ctx)
		if errors.Is(err, idearepo.ErrExists) {
			return nil, fmt.Errorf("%w: %s", ErrIdeaExists, idea.ID)
		}
		return nil, fmt.Errorf("save idea: %w", err)
	}

	s.events.Publish(Event{Type: EventStarted, IdeaID: saved.ID, UserID: saved.UserID.String()})
	res := s.engine.Refine(ctx, saved.Text, refine.Observe(s.stream(saved, 0)))
	return s.finish(ctx, ch, saved, 0, "", res)
}

func (s *Service) Feedback(ctx context.Context, req FeedbackRequest) (*Outcome, error) {
	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		return nil, fmt.Errorf("%w: feedback is required", ErrInvalidInput)
	}
	ideaID := strings.TrimSpace(req.IdeaID)
	if ideaID == "" {
		return nil, fmt.Errorf("%w: idea_id is required", ErrInvalidInput)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	user := entity.NormalizeUserID(req.UserID)

	idea, err := s.ideas.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.UserID.String() != user.String() {
		return nil, ErrForbidden
	}
	// the previous log and iteration must not change under a running cycle
	release, err := s.claim(ideaID)
	if err != nil {
		return nil, err
	}
	defer release()

	previous, err := s.ideas.Debate(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("load debate: %w", err)
	}
	docs, err := s.ideas.Documents(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	iteration := len(docs)

	ch, err := s.deduct(ctx, user, s.costs.Feedback, credits.ReasonFeedback)
	if err != nil {
		return nil, err
	}
	s.events.Publish(Event{Type: EventStarted, IdeaID: ideaID, UserID: idea.UserID.String(), Iteration: iteration})
	res := s.engine.RefineWithFeedback(ctx, idea.Text, previous, feedback, refine.Observe(s.stream(idea, iteration)))
	return s.finish(ctx, ch, idea, iteration, feedback, res)
}

// Authorize checks that userID may watch the live events of ideaID and
// returns the normalized user. An id that does not exist yet is allowed so a
// client can subscribe before starting its run; watchers must then drop
// events whose UserID differs.
func (s *Service) Authorize(ctx context.Context, userID, ideaID string) (entity.UserID, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	user := entity.NormalizeUserID(userID)
	idea, err := s.ideas.GetIdea(ctx, ideaID)
	switch {
	case errors.Is(err, idearepo.ErrNotFound):
		return user, nil
	case err != nil:
		return "", err
	case idea.UserID.String() != user.String():
		return "", ErrForbidden
	}
	return user, nil
}

// History lists a user's ideas, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]entity.Idea, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.ideas.ListIdeas(ctx, entity.NormalizeUserID(userID), limit)
}

// IdeaDetail is an idea with its full debate and every document iteration.
type IdeaDetail struct {
	Idea      entity.Idea       `json:"idea"`
	Debate    debate.Log        `json:"debate_log"`
	Documents []entity.Document `json:"documents"`
}

func (s *Service) Detail(ctx context.Context, userID, ideaID string) (*IdeaDetail, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	idea, err := s.ideas.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.UserID.String() != entity.NormalizeUserID(userID).String() {
		return nil, ErrForbidden
	}
	entries, err := s.ideas.Debate(ctx, idea.ID)
	if err != nil {
		return nil, err
	}
	docs, err := s.ideas.Documents(ctx, idea.ID)
	if err != nil {
		return nil, err
	}
	return &IdeaDetail{Idea: idea, Debate: entries, Documents: docs}, nil
}

// Balance reports the user's remaining credits. Without a ledger every
// user is unmetered and the balance is zero.
func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	if s.ledger == nil {
		return 0, nil
	}
	return s.ledger.Balance(ctx, entity.NormalizeUserID(userID))
}

// Transactions lists the user's credit history, newest first.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]credits.Transaction, error) {
	if s.ledger == nil {
		return []credits.Transaction{}, nil
	}
	return s.ledger.Transactions(ctx, entity.NormalizeUserID(userID), limit)
}

// Artifact reads one stored rendering of an idea's document.
func (s *Service) Artifact(ctx context.Context, userID, ideaID, path string) ([]byte, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.artifacts == nil {
		return nil, artifactrepo.ErrNotFound
	}
	idea, err := s.ideas.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.UserID.String() != entity.NormalizeUserID(userID).String() {
		return nil, ErrForbidden
	}
	return s.artifacts.Get(ctx, idea.ID, path)
}

func (s *Service) finish(ctx context.Context, ch *charge, idea entity.Idea, iteration int, feedback string, res refine.Result) (*Outcome, error) {
	out := &Outcome{Idea: idea, Result: res}
	if !res.Success {
		ch.refund(ctx)
		s.events.Publish(Event{Type: EventFailed, IdeaID: idea.ID, UserID: idea.UserID.String(), Iteration: iteration, Error: res.Error})
		return out, fmt.Errorf("%w: %s", ErrFailed, res.Error)
	}

	doc, urls, err := s.persist(ctx, idea, iteration, feedback, res)
	if err != nil {
		ch.refund(ctx)
		s.events.Publish(Event{Type: EventFailed, IdeaID: idea.ID, UserID: idea.UserID.String(), Iteration: iteration, Error: err.Error()})
		return out, err
	}
	out.Document = doc
	out.ArtifactURLs = urls
	out.Balance = ch.balance
	s.events.Publish(Event{Type: EventCompleted, IdeaID: idea.ID, UserID: idea.UserID.String(), Iteration: iteration, DocumentID: doc.ID})
	s.logger.Printf("refinement: idea %s iteration %d done (calls=%d fallback=%t)", idea.ID, iteration, res.CallsMade, res.UsedFallback)
	return out, nil
}

func (s *Service) persist(ctx context.Context, idea entity.Idea, iteration int, feedback string, res refine.Result) (entity.Document, map[string]string, error) {
	if err := s.ideas.AppendDebate(ctx, idea.ID, res.Log); err != nil {
		return entity.Document{}, nil, fmt.Errorf("save debate: %w", err)
	}
	doc := entity.Document{
		IdeaID:       idea.ID,
		Iteration:    iteration,
		Feedback:     feedback,
		Content:      res.Document,
		Sections:     res.Sections,
		UsedFallback: res.UsedFallback,
		CallsMade:    res.CallsMade,
		CreatedAt:    time.Now().UTC(),
	}
	urls := s.writeArtifacts(ctx, idea, &doc)
	saved, err := s.ideas.SaveDocument(ctx, doc)
	if err != nil {
		return entity.Document{}, nil, fmt.Errorf("save document: %w", err)
	}
	return saved, urls, nil
}

// writeArtifacts renders doc and stores it. Artifact failures are logged and
// never fail the run; the document itself is already in the idea store.
func (s *Service) writeArtifacts(ctx context.Context, idea entity.Idea, doc *entity.Document) map[string]string {
	if s.artifacts == nil {
		return nil
	}
	files, err := Render(idea, *doc)
	if err != nil {
		s.logger.Printf("refinement: render %s: %v", idea.ID, err)
		return nil
	}
	paths, err := artifactrepo.PutDocument(ctx, s.artifacts, idea.ID, doc.Iteration, files)
	doc.Artifacts = paths
	if err != nil {
		s.logger.Printf("refinement: store artifacts %s: %v", idea.ID, err)
	}
	urls := make(map[string]string, len(paths))
	for _, p := range paths {
		u, err := s.artifacts.GetURL(ctx, idea.ID, p)
		if err != nil || u == "" {
			continue
		}
		urls[p] = u
	}
	if len(urls) == 0 {
		return nil
	}
	return urls
}

// Render produces the Markdown, HTML and YAML forms of doc.
func Render(idea entity.Idea, doc entity.Document) ([]artifactrepo.File, error) {
	md := prd.Markdown(idea.Title, doc.Sections)
	html, err := prd.RenderHTML(md)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	y, err := prd.NewExport(idea.Text, doc.Iteration, doc.Feedback, doc.UsedFallback, doc.Sections).YAML()
	if err != nil {
		return nil, fmt.Errorf("render yaml: %w", err)
	}
	return []artifactrepo.File{
		{Name: "document.md", Content: []byte(md)},
		{Name: "document.html", Content: []byte(html)},
		{Name: "document.yaml", Content: y},
	}, nil
}

func (s *Service) stream(idea entity.Idea, iteration int) func(debate.Entry) {
	return func(e debate.Entry) {
		s.events.Publish(Event{Type: EventEntry, IdeaID: idea.ID, UserID: idea.UserID.String(), Iteration: iteration, Entry: &e})
	}
}

// claim marks ideaID as having a run in flight. Only one run per idea may
// hold the claim; the returned func releases it.
func (s *Service) claim(ideaID string) (func(), error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if _, ok := s.running[ideaID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, ideaID)
	}
	s.running[ideaID] = struct{}{}
	return func() {
		s.runMu.Lock()
		delete(s.running, ideaID)
		s.runMu.Unlock()
	}, nil
}

func (s *Service) ready() error {
	if s == nil || s.engine == nil || s.ideas == nil {
		return fmt.Errorf("refinement service is not available")
	}
	return nil
}

// charge is a deduction that can be undone once.
type charge struct {
	s       *Service
	user    entity.UserID
	amount  int
	balance int
	done    bool
}

func (s *Service) deduct(ctx context.Context, user entity.UserID, amount int, reason string) (*charge, error) {
	c := &charge{s: s, user: user}
	if s.ledger == nil || amount <= 0 {
		return c, nil
	}
	bal, err := s.ledger.Deduct(ctx, user, amount, reason)
	if err != nil {
		return nil, err
	}
	c.amount = amount
	c.balance = bal
	return c, nil
}

func (c *charge) refund(ctx context.Context) {
	if c == nil || c.done || c.amount == 0 {
		return
	}
	c.done = true
	// the request context may already be cancelled
	bal, err := c.s.ledger.Refund(context.WithoutCancel(ctx), c.user, c.amount, credits.ReasonRefund)
	if err != nil {
		c.s.logger.Printf("refinement: refund %d to %s failed: %v", c.amount, c.user, err)
		return
	}
	c.balance = bal
}
