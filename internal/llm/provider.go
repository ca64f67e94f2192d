package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderFake   = "fake"
)

// Config selects and tunes a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	RPS      float64
	Burst    int
	Timeout  time.Duration
	Logger   *log.Logger
}

// New builds the provider named in cfg and wraps it with the standard
// middleware stack, outermost first: hooks, logging, rate limit, timeout.
// The offline fake is not rate limited.
func New(ctx context.Context, cfg Config) (Client, error) {
	var (
		base Client
		err  error
	)
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderGemini:
		base, err = NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case ProviderOpenAI:
		base, err = NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderFake:
		base = NewFakeClient()
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	var limit Middleware
	if provider != ProviderFake {
		limit = RateLimit(cfg.RPS, cfg.Burst)
	}
	return Wrap(base,
		WithHooks(),
		WithLogging(cfg.Logger),
		limit,
		WithTimeout(cfg.Timeout),
	), nil
}
