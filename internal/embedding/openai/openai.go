// Package openai is an embeddings client for OpenAI-compatible servers,
// including Ollama.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "text-embedding-3-small"
)

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  atomic.Int64 // set by the first response
	batchSize  int
	client     *http.Client
	maxRetries int
	sleep      func(time.Duration)
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	BatchSize  int
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
// The API key is read from the environment variable named by APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfig, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: t},
		maxRetries: cfg.MaxRetries,
		sleep:      time.Sleep,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is not required for remote embedding. Dimension is set lazily on first embed.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	// Ollama's native endpoint only reads "prompt".
	vecs, err := c.request(ctx, reqBody{Input: text, Prompt: text, Model: c.model}, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in groups of the configured batch size.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.request(ctx, reqBody{Input: texts[start:end], Model: c.model}, end-start)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type reqBody struct {
	Input  any    `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Model  string `json:"model"`
}

type openaiResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (c *Client) request(ctx context.Context, body reqBody, want int) ([][]float32, error) {
	data, err := sonic.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %s: %v", domain.ErrProvider, c.Name(), err)
			c.backoff(attempt, retryDelay(attempt))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: openai embeddings failed: %s", domain.ErrProvider, resp.Status)
			// Respect Retry-After if provided
			delay := retryDelay(attempt)
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				delay = time.Duration(secs) * time.Second
			}
			c.backoff(attempt, delay)
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: openai embeddings failed: %s", domain.ErrProvider, resp.Status)
		}
		if err != nil {
			lastErr = fmt.Errorf("%w: reading response: %v", domain.ErrProvider, err)
			c.backoff(attempt, retryDelay(attempt))
			continue
		}
		vecs, err := decode(payload, want)
		if err != nil {
			return nil, err
		}
		c.dimension.CompareAndSwap(0, int64(len(vecs[0])))
		return vecs, nil
	}
	return nil, lastErr
}

// decode accepts the OpenAI list shape and the Ollama single-vector shape.
func decode(payload []byte, want int) ([][]float32, error) {
	var oa openaiResponse
	if err := sonic.Unmarshal(payload, &oa); err == nil && len(oa.Data) > 0 {
		if len(oa.Data) != want {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrMalformedResponse, len(oa.Data), want)
		}
		sort.SliceStable(oa.Data, func(i, j int) bool { return oa.Data[i].Index < oa.Data[j].Index })
		out := make([][]float32, len(oa.Data))
		for i, d := range oa.Data {
			if len(d.Embedding) == 0 {
				return nil, fmt.Errorf("%w: empty embedding at %d", domain.ErrMalformedResponse, i)
			}
			out[i] = d.Embedding
		}
		return out, nil
	}
	var ol ollamaResponse
	if err := sonic.Unmarshal(payload, &ol); err == nil && len(ol.Embedding) > 0 && want == 1 {
		return [][]float32{ol.Embedding}, nil
	}
	return nil, fmt.Errorf("%w: no embedding returned", domain.ErrMalformedResponse)
}

func (c *Client) backoff(attempt int, d time.Duration) {
	if attempt < c.maxRetries {
		c.sleep(d)
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
