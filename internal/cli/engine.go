package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"focalai/internal/debate"
	"focalai/internal/gateway/config"
	"focalai/internal/llm"
	"focalai/internal/refine"
)

// Session is what refine and feedback print with --format json, and what
// feedback --from reads back. History is the whole debate so far; Result
// holds only the latest run.
type Session struct {
	IdeaID    string     `json:"idea_id"`
	Idea      string     `json:"idea"`
	Iteration int        `json:"iteration"`
	Feedback  string     `json:"feedback,omitempty"`
	History   debate.Log `json:"history"`
	refine.Result
}

func newEngine(ctx context.Context, cfg *config.Config, logger *log.Logger, observer func(debate.Entry)) (*refine.Engine, llm.Client, error) {
	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		RPS:      cfg.LLM.RPS,
		Burst:    cfg.LLM.Burst,
		Timeout:  cfg.LLM.Timeout,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("llm client: %w", err)
	}
	engine := refine.New(client,
		refine.WithCeiling(cfg.Engine.QuotaCeiling),
		refine.WithRounds(cfg.Engine.Rounds),
		refine.WithFeedbackRounds(cfg.Engine.FeedbackRounds),
		refine.WithParallel(cfg.Engine.Parallel),
		refine.WithObserver(observer),
		refine.WithLogger(logger),
	)
	return engine, client, nil
}

func readSession(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	if s.Idea == "" {
		return nil, fmt.Errorf("session %s has no idea", path)
	}
	if len(s.History) == 0 {
		s.History = s.Result.Log
	}
	return &s, nil
}
