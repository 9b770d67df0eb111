package ollama

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/internal/llm"
)

const defaultBaseURL = "http://localhost:11434"

var _ llm.Gateway = (*Client)(nil)

// Config for a local Ollama server.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client implements llm.Gateway against Ollama's /api/generate endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "llama3:instruct"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Format  string         `json:"format"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Format:  "json",
		Stream:  false,
		Options: map[string]any{"temperature": c.cfg.Temperature},
	}
	var out generateResponse
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"
	if _, err := llm.PostJSON(ctx, c.http, url, body, nil, &out, c.logger); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", errors.New("ollama: empty response")
	}
	return out.Response, nil
}
