package summary

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadledger/internal/config"
	"github.com/sells-group/leadledger/pkg/anthropic"
)

// NewCompleter builds the completer selected by cfg.Summary.Provider.
// It returns nil for "off".
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.Summary.Provider {
	case "", "off":
		return nil, nil
	case "proxy":
		return NewProxy(cfg.Summary.ProxyURL, time.Duration(cfg.Summary.TimeoutSecs)*time.Second), nil
	case "anthropic":
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return NewAnthropic(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	case "gemini":
		g, err := NewGemini(ctx, cfg.Gemini.Key, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, eris.Errorf("summary: unknown provider %q", cfg.Summary.Provider)
	}
}

// NewFromConfig returns the placeholder-degrading summarizer for cfg. The
// completer retries transient failures up to summary.max_attempts and sits
// behind a breaker so an unreachable provider fails fast.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Fallback, Completer, error) {
	c, err := NewCompleter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if c != nil {
		c = NewResilient(c, cfg.Summary.Provider, cfg.Summary.MaxAttempts)
	}
	var gen Generator
	if c != nil {
		gen = FromCompleter(c)
	}
	return NewFallback(gen, cfg.Summary.Placeholder), c, nil
}
