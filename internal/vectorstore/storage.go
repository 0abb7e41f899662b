// Package vectorstore defines the vector index port and shared ranking rules.
package vectorstore

import (
	"context"
	"sort"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

// Hit is one search result. Row is the insertion index of the vector.
type Hit struct {
	Row   int
	Meta  domain.ChunkMeta
	Score float64
}

// Index stores vectors with metadata and answers nearest-neighbour queries.
// Add is append-only; Search returns hits best first under Metric.
type Index interface {
	Metric() domain.Metric
	Dimension() int
	Len() int
	Add(ctx context.Context, vectors [][]float32, metas []domain.ChunkMeta) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
}

// Rank orders hits best first under m, lower row first on equal scores.
func Rank(m domain.Metric, hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return m.Better(hits[i].Score, hits[j].Score)
		}
		return hits[i].Row < hits[j].Row
	})
}
