package pipeline

import (
	"time"

	"github.com/joseph-ayodele/docverify/internal/common"
)

// Config tunes the model-backed stages.
type Config struct {
	Model            string
	Concurrency      int
	CallTimeout      time.Duration
	Retry            RetryPolicy
	MaxSearchResults int
	StrictSummaries  bool
}

// ConfigFromCommon maps the process configuration onto pipeline settings.
func ConfigFromCommon(cfg *common.Config) Config {
	return Config{
		Model:       cfg.LLM.Model,
		Concurrency: cfg.Pipeline.Concurrency,
		CallTimeout: cfg.Pipeline.CallTimeout,
		Retry: RetryPolicy{
			Attempts:       cfg.Pipeline.RetryAttempts,
			InitialBackoff: cfg.Pipeline.RetryBackoff,
			MaxBackoff:     cfg.Pipeline.RetryMaxBackoff,
		},
		MaxSearchResults: cfg.Pipeline.MaxSearchResults,
		StrictSummaries:  cfg.Pipeline.StrictSummaries,
	}
}
