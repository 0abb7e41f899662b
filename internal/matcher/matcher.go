// Package matcher ranks indexed evidence chunks against a claim.
package matcher

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rahulmurugan/fact-check/internal/domain"
	"github.com/rahulmurugan/fact-check/internal/vectorstore"
)

const (
	DefaultTopK = 3
	SnippetLen  = 200
)

// QueryEmbedder turns a claim into a vector in the index space.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Matcher is safe for concurrent use when its index is.
type Matcher struct {
	embedder QueryEmbedder
	index    vectorstore.Index
	logger   *zap.Logger
}

func New(embedder QueryEmbedder, index vectorstore.Index, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{embedder: embedder, index: index, logger: logger}
}

// Match returns up to topK evidence snippets for claim, best first.
// Scores are raw index scores: similarity for ip, squared distance for l2.
func (m *Matcher) Match(ctx context.Context, claim string, topK int) ([]domain.Match, error) {
	hits, err := m.Hits(ctx, claim, topK)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Match, len(hits))
	for i, h := range hits {
		out[i] = MatchOf(h)
	}
	return out, nil
}

// Hits is Match before the hits are reduced to snippets. Hits that would
// repeat an earlier (document, snippet) pair are skipped; the index is
// searched again with a larger k until topK distinct hits are found or the
// index is exhausted.
func (m *Matcher) Hits(ctx context.Context, claim string, topK int) ([]vectorstore.Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidConfig, topK)
	}
	n := m.index.Len()
	if n == 0 {
		return []vectorstore.Hit{}, nil
	}
	query, err := m.embedder.Embed(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("failed to embed claim: %w", err)
	}

	metric := m.index.Metric()
	fetch := topK
	for {
		if fetch > n {
			fetch = n
		}
		hits, err := m.index.Search(ctx, query, fetch)
		if err != nil {
			return nil, fmt.Errorf("failed to search index: %w", err)
		}
		vectorstore.Rank(metric, hits)
		out := dedupe(hits, topK)
		if len(out) == topK || fetch >= n {
			m.logger.Debug("matched claim",
				zap.Int("top_k", topK),
				zap.Int("fetched", len(hits)),
				zap.Int("matches", len(out)))
			return out, nil
		}
		fetch *= 2
	}
}

// MatchOf reduces a hit to the output shape of Match.
func MatchOf(h vectorstore.Hit) domain.Match {
	return domain.Match{
		DocumentName: h.Meta.SourceID,
		MatchingText: Snippet(h.Meta.Text, SnippetLen),
		Score:        h.Score,
	}
}

func dedupe(hits []vectorstore.Hit, limit int) []vectorstore.Hit {
	out := make([]vectorstore.Hit, 0, limit)
	seen := make(map[domain.Match]struct{}, len(hits))
	for _, h := range hits {
		key := MatchOf(h)
		key.Score = 0
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Snippet returns the first n characters of text, with "..." appended when
// text was longer.
func Snippet(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
