// Package ollama provides an Ollama-backed embedding client. Requests are
// rate limited so bulk backfills do not starve interactive matching, and run
// through a circuit breaker so a dead model server fails fast.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/codauto/engine/pkg/resilience"
)

// Client calls the Ollama embeddings HTTP API.
type Client struct {
	baseURL string
	model   string
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// New creates a Client. rps bounds requests per second; rps <= 0 disables
// the limit.
func New(baseURL, model string, rps float64) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpc:   &http.Client{},
		limiter: limiter,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

type embedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the raw (un-normalized) embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		vec, err := c.embed(ctx, text)
		out = vec
		return err
	})
	return out, err
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, _ := json.Marshal(embedReq{Model: c.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: status %d", resp.StatusCode)
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch embeds texts one request at a time; the Ollama embeddings
// endpoint takes a single prompt per call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
