// Package mock provides test doubles for llm interfaces using function fields.
package mock

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/docverify/internal/llm"
)

var _ llm.Gateway = (*Gateway)(nil)

// Gateway is a test double for llm.Gateway.
// Set InvokeFn before calling Invoke. Prompts are recorded in call order.
type Gateway struct {
	InvokeFn func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// Invoke records prompt and delegates to InvokeFn.
func (g *Gateway) Invoke(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.InvokeFn(ctx, prompt)
}

// Prompts returns a copy of every prompt received so far.
func (g *Gateway) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Calls returns how many times Invoke ran.
func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
