// Package mock provides a scripted LLM client for testing and local
// development without provider credentials. Responses and failures are
// scripted per model name so tests can exercise fallback behavior
// deterministically.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"content-compliance-service/internal/service/llm"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// Script describes how the mock behaves for one model name.
type Script struct {
	// Response is returned when Fail is empty.
	Response string
	// Fail, when non-zero times, makes the next calls return FailWith.
	Fail int
	// FailWith is the error kind returned while Fail > 0.
	FailWith llm.ErrorKind
	// RetryAfter is attached to rate-limited failures.
	RetryAfter int // seconds
}

// Client implements llm.Client with scripted responses.
type Client struct {
	mu      sync.Mutex
	scripts map[string]*Script
	calls   map[string]int
}

// New creates a mock client with no scripts. Unknown models echo a
// canned response.
func New() *Client {
	return &Client{
		scripts: make(map[string]*Script),
		calls:   make(map[string]int),
	}
}

// Name identifies the provider.
func (c *Client) Name() string { return "mock" }

// SetScript installs the behavior for a model name.
func (c *Client) SetScript(model string, s Script) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[model] = &s
}

// Calls reports how many times model was invoked.
func (c *Client) Calls(model string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[model]
}

// Generate returns the scripted response or failure for model.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &llm.Error{Provider: c.Name(), Model: model, Kind: llm.KindTransient, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[model]++

	s, ok := c.scripts[model]
	if !ok {
		return fmt.Sprintf("mock response for %q", prompt), nil
	}
	if s.Fail > 0 {
		s.Fail--
		e := &llm.Error{Provider: c.Name(), Model: model, Kind: s.FailWith,
			Err: fmt.Errorf("scripted %s failure", s.FailWith)}
		if s.FailWith == llm.KindRateLimited {
			e.StatusCode = 429
			e.RetryAfter = secondsToDuration(s.RetryAfter)
		}
		if s.FailWith == llm.KindNotFound {
			e.StatusCode = 404
		}
		return "", e
	}
	return s.Response, nil
}
