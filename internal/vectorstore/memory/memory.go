// Package memory is an exact, brute-force vector index held in memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rahulmurugan/fact-check/internal/domain"
	"github.com/rahulmurugan/fact-check/internal/vectorstore"
)

var _ vectorstore.Index = (*Index)(nil)

// Index scores every stored vector against the query.
// Rows are kept in insertion order; the row number maps a hit to its metadata.
type Index struct {
	metric domain.Metric

	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	metas     []domain.ChunkMeta
	sealed    bool
}

// New returns an empty index. The metric cannot change afterwards.
func New(metric domain.Metric) (*Index, error) {
	switch metric {
	case domain.MetricInnerProduct, domain.MetricL2:
	default:
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, metric)
	}
	return &Index{metric: metric}, nil
}

// Metric returns the distance semantics of the index.
func (x *Index) Metric() domain.Metric { return x.metric }

// Dimension returns the vector length fixed by the first Add, or 0.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Metas returns a copy of the metadata rows in row order.
func (x *Index) Metas() []domain.ChunkMeta {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]domain.ChunkMeta(nil), x.metas...)
}

// Seal ends the build phase. Later Adds fail with ErrIndexSealed.
func (x *Index) Seal() {
	x.mu.Lock()
	x.sealed = true
	x.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (x *Index) Sealed() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.sealed
}

// Add appends vectors and their metadata. The whole batch is checked before
// anything is stored, so a failed Add leaves the index unchanged.
func (x *Index) Add(_ context.Context, vectors [][]float32, metas []domain.ChunkMeta) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("%w: %d vectors but %d metadata rows", domain.ErrInvalidConfig, len(vectors), len(metas))
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.sealed {
		return domain.ErrIndexSealed
	}
	if len(vectors) == 0 {
		return nil
	}
	dim := x.dimension
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
		}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, index has %d", domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	x.dimension = dim
	for _, v := range vectors {
		x.vectors = append(x.vectors, append([]float32(nil), v...))
	}
	x.metas = append(x.metas, metas...)
	return nil
}

// Search returns the k best rows for query. k larger than Len returns every row.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]vectorstore.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfig, k)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(x.vectors) == 0 {
		return []vectorstore.Hit{}, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", domain.ErrDimensionMismatch, len(query), x.dimension)
	}
	hits := make([]vectorstore.Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = vectorstore.Hit{Row: i, Meta: x.metas[i], Score: x.score(v, query)}
	}
	vectorstore.Rank(x.metric, hits)
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (x *Index) score(a, b []float32) float64 {
	if x.metric == domain.MetricL2 {
		return squaredL2(a, b)
	}
	return dot(a, b)
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
