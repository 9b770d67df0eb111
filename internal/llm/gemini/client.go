package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/docverify/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

var _ llm.Gateway = (*Client)(nil)

// Config for the Gemini client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// Client implements llm.Gateway for the Google Gemini API.
type Client struct {
	client *genai.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a Gemini client using the Gemini API backend.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Client{client: gc, cfg: cfg, logger: logger}, nil
}

// Invoke sends prompt as a single user turn and asks for a JSON reply.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.logger.Debug("llm.invoke.start", "provider", "gemini", "req_id", rid, "model", c.cfg.Model, "prompt_len", len(prompt))

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		c.logger.Error("llm.invoke.error", "provider", "gemini", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	c.logger.Debug("llm.invoke.ok", "provider", "gemini", "req_id", rid, "response_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
