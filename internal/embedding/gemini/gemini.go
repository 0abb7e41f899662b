// Package gemini embeds text with Google's Generative AI embedding models.
package gemini

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

const defaultModel = "text-embedding-004"

// contentEmbedder is the slice of *genai.EmbeddingModel the embedder uses.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, parts ...genai.Part) (*genai.EmbedContentResponse, error)
}

// Config configures the Gemini embedder.
type Config struct {
	APIKeyEnv string
	Model     string
	// Pause between calls of a batch, to stay under the free-tier rate limit.
	Pause time.Duration
}

// Embedder implements the embedding port on top of the Gemini API.
type Embedder struct {
	client    *genai.Client
	model     contentEmbedder
	name      string
	pause     time.Duration
	dimension atomic.Int64
}

// New opens a Gemini client. Close it when done.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfig, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", domain.ErrProvider, err)
	}
	return &Embedder{
		client: client,
		model:  client.EmbeddingModel(cfg.Model),
		name:   cfg.Model,
		pause:  cfg.Pause,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini" }

// Prepare is a no-op for a hosted model.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the vector size once the first embedding came back.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini %s: %v", domain.ErrProvider, e.name, err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: gemini %s returned no embedding", domain.ErrMalformedResponse, e.name)
	}
	values := resp.Embedding.Values
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	e.dimension.CompareAndSwap(0, int64(len(out)))
	return out, nil
}

// EmbedBatch embeds texts sequentially, pausing between calls.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out = append(out, v)
		if e.pause > 0 && i < len(texts)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.pause):
			}
		}
	}
	return out, nil
}

// Close releases the underlying client.
func (e *Embedder) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
