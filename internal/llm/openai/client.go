package openai

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	sdk "github.com/openai/openai-go"

	"github.com/joseph-ayodele/docverify/internal/llm"
)

var _ llm.Gateway = (*Client)(nil)

// Invoke implements llm.Gateway with a single-turn chat completion.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("llm.invoke.start",
		"provider", "openai",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(prompt),
	)

	resp, err := c.sdk.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:          sdk.ChatModel(c.cfg.Model),
		Messages:       []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(prompt)},
		Temperature:    sdk.Float(float64(c.cfg.Temperature)),
		ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &sdk.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		c.logger.Error("llm.invoke.error",
			"provider", "openai", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.invoke.no_choices", "provider", "openai", "req_id", rid)
		return "", errors.New("openai: empty choices")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("llm.invoke.ok",
		"provider", "openai",
		"req_id", rid,
		"response_len", len(content),
		"total_tokens", resp.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
