package app

import (
	"context"
	"fmt"
	"log"
	"os"

	"focalai/internal/gateway/config"
	"focalai/internal/gateway/handler"
	"focalai/internal/gateway/handler/rpc"
	"focalai/internal/gateway/server"
	"focalai/internal/gateway/service/refinement"
	"focalai/internal/llm"
	"focalai/internal/refine"
)

type App struct {
	server *server.Server
	client llm.Client
	stores *gatewayStores
}

// New loads configuration from the environment and builds the gateway.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(context.Background(), cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	// Dependencies
	stores, err := initStores(cfg)
	if err != nil {
		return nil, err
	}
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
		_ = stores.Close()
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}
	log.Printf("llm provider: %s", client.Name())

	engine := refine.New(client,
		refine.WithCeiling(cfg.Engine.QuotaCeiling),
		refine.WithRounds(cfg.Engine.Rounds),
		refine.WithFeedbackRounds(cfg.Engine.FeedbackRounds),
		refine.WithParallel(cfg.Engine.Parallel),
		refine.WithLogger(logger),
	)
	refinementSvc := refinement.New(refinement.Deps{
		Engine:    engine,
		Ideas:     stores.ideas,
		Artifacts: stores.artifact,
		Ledger:    stores.ledger,
		Costs: refinement.Costs{
			Idea:     cfg.Credits.IdeaCost,
			Feedback: cfg.Credits.FeedbackCost,
		},
		Logger: logger,
	})

	refineHandler := handler.NewRefineHandler(refinementSvc)
	refinementHandler := rpc.NewRefinementHandler(refinementSvc)
	debateHandler := rpc.NewDebateHandler(refinementSvc)

	// Routing & Server
	mux := server.NewMux(refineHandler, refinementHandler, debateHandler, logger)
	srv := server.New(cfg.Port, mux)

	return &App{
		server: srv,
		client: client,
		stores: stores,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.client.Close(); cerr != nil {
		log.Printf("llm client close: %v", cerr)
	}
	if cerr := a.stores.Close(); cerr != nil {
		log.Printf("store close: %v", cerr)
	}
	return err
}
