// Package embedding defines the embedding provider boundary of the pipeline.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is implemented by providers that can embed many texts per call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Guard validates every vector coming out of a provider before it can reach
// an index. Vectors must be non-empty, finite and keep one dimension; non-zero
// vectors are scaled to unit length.
type Guard struct {
	inner Embedder

	mu  sync.Mutex
	dim int
}

// NewGuard wraps an embedder.
func NewGuard(inner Embedder) *Guard {
	return &Guard{inner: inner}
}

// Name returns the wrapped provider name.
func (g *Guard) Name() string { return g.inner.Name() }

// Prepare forwards corpus preparation and forgets the observed dimension,
// since preparation may change it.
func (g *Guard) Prepare(corpus []string) error {
	g.mu.Lock()
	g.dim = 0
	g.mu.Unlock()
	return g.inner.Prepare(corpus)
}

// Dimension returns the dimension seen so far, or the provider's own report.
func (g *Guard) Dimension() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dim > 0 {
		return g.dim
	}
	return g.inner.Dimension()
}

// Embed embeds one text and validates the result.
func (g *Guard) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return g.check(vec)
}

// EmbedBatch uses the provider's batch call when it has one.
func (g *Guard) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	if b, ok := g.inner.(BatchEmbedder); ok {
		var err error
		vecs, err = b.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts", domain.ErrMalformedResponse, g.inner.Name(), len(vecs), len(texts))
		}
	} else {
		vecs = make([][]float32, len(texts))
		for i, t := range texts {
			v, err := g.inner.Embed(ctx, t)
			if err != nil {
				return nil, err
			}
			vecs[i] = v
		}
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		checked, err := g.check(v)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = checked
	}
	return out, nil
}

func (g *Guard) check(vec []float32) ([]float32, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty vector", domain.ErrMalformedResponse, g.inner.Name())
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s returned a non-finite value at %d", domain.ErrMalformedResponse, g.inner.Name(), i)
		}
	}
	g.mu.Lock()
	if g.dim == 0 {
		g.dim = len(vec)
	}
	dim := g.dim
	g.mu.Unlock()
	if len(vec) != dim {
		return nil, fmt.Errorf("%w: %s returned %d values, expected %d", domain.ErrMalformedResponse, g.inner.Name(), len(vec), dim)
	}
	return Normalize(vec), nil
}

// Normalize returns a unit-length copy of vec. Zero vectors come back as is.
func Normalize(vec []float32) []float32 {
	norm := 0.0
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if norm == 0 {
		copy(out, vec)
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
