// Package providers builds the configured llm.Gateway.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/llm"
	"github.com/joseph-ayodele/docverify/internal/llm/gemini"
	"github.com/joseph-ayodele/docverify/internal/llm/ollama"
	"github.com/joseph-ayodele/docverify/internal/llm/openai"
)

// New returns a gateway for cfg.Provider.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("llm.provider.init", "provider", cfg.Provider, "model", cfg.Model)

	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "gemini":
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "ollama":
		return ollama.NewClient(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
