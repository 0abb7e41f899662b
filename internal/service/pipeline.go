// Package service wires corpus loading, chunking, embedding, indexing and
// matching into one pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rahulmurugan/fact-check/internal/answer"
	"github.com/rahulmurugan/fact-check/internal/corpus"
	"github.com/rahulmurugan/fact-check/internal/domain"
	"github.com/rahulmurugan/fact-check/internal/embedding"
	"github.com/rahulmurugan/fact-check/internal/matcher"
	"github.com/rahulmurugan/fact-check/internal/vectorstore"
)

const (
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// Options carries the components of a Pipeline. Generator may be nil when
// Answer is not used.
type Options struct {
	Builder   *corpus.Builder
	Chunker   domain.Chunker
	Embedder  embedding.Embedder
	Index     vectorstore.Index
	Generator answer.Generator
	Logger    *zap.Logger

	// BatchSize is the number of chunks embedded and added per step.
	BatchSize int
	// Concurrency bounds the claims matched at once by MatchClaims.
	Concurrency int
}

// Pipeline builds one index and answers claims against it.
type Pipeline struct {
	builder   *corpus.Builder
	chunker   domain.Chunker
	embedder  *embedding.Guard
	index     vectorstore.Index
	generator answer.Generator
	matcher   *matcher.Matcher
	logger    *zap.Logger
	batchSize int
	workers   int

	mu    sync.Mutex
	built bool
}

type sealer interface{ Seal() }

type metaLister interface {
	Metas() []domain.ChunkMeta
}

func New(opts Options) (*Pipeline, error) {
	if opts.Chunker == nil || opts.Embedder == nil || opts.Index == nil {
		return nil, fmt.Errorf("%w: pipeline needs a chunker, an embedder and an index", domain.ErrInvalidConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	builder := opts.Builder
	if builder == nil {
		builder = corpus.NewBuilder(corpus.Options{}, logger)
	}
	guard, ok := opts.Embedder.(*embedding.Guard)
	if !ok {
		guard = embedding.NewGuard(opts.Embedder)
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	return &Pipeline{
		builder:   builder,
		chunker:   opts.Chunker,
		embedder:  guard,
		index:     opts.Index,
		generator: opts.Generator,
		matcher:   matcher.New(guard, opts.Index, logger.Named("matcher")),
		logger:    logger,
		batchSize: batch,
		workers:   workers,
	}, nil
}

// BuildSummary reports the outcome of Build.
type BuildSummary struct {
	Sources   []corpus.Report
	Records   int
	Chunks    int
	Dimension int
}

// Build loads the sources, indexes every chunk and seals the index.
// A pipeline is built at most once.
func (p *Pipeline) Build(ctx context.Context, sources []corpus.Source) (*BuildSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.built {
		return nil, fmt.Errorf("%w: pipeline already built", domain.ErrIndexSealed)
	}

	res, err := p.builder.Build(ctx, sources)
	if err != nil {
		return nil, err
	}
	var (
		texts []string
		metas []domain.ChunkMeta
	)
	for _, rec := range res.Records {
		chunks, err := p.chunker.Chunk(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk record %s of %s: %w", rec.ID, rec.SourceID, err)
		}
		for _, ch := range chunks {
			texts = append(texts, ch.Text)
			metas = append(metas, domain.NewChunkMeta(rec, ch))
		}
	}
	summary := &BuildSummary{Sources: res.Reports, Records: len(res.Records), Chunks: len(texts)}

	if len(texts) > 0 {
		if err := p.embedder.Prepare(texts); err != nil {
			return nil, fmt.Errorf("failed to prepare embedder %s: %w", p.embedder.Name(), err)
		}
		for start := 0; start < len(texts); start += p.batchSize {
			end := min(start+p.batchSize, len(texts))
			vecs, err := p.embedder.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
			}
			if err := p.index.Add(ctx, vecs, metas[start:end]); err != nil {
				return nil, fmt.Errorf("failed to index chunks %d-%d: %w", start, end, err)
			}
			p.logger.Debug("indexed batch", zap.Int("from", start), zap.Int("to", end))
		}
	}
	if s, ok := p.index.(sealer); ok {
		s.Seal()
	}
	p.built = true
	summary.Dimension = p.index.Dimension()

	p.logger.Info("index built",
		zap.String("embedder", p.embedder.Name()),
		zap.String("metric", string(p.index.Metric())),
		zap.Int("records", summary.Records),
		zap.Int("chunks", summary.Chunks),
		zap.Int("dimension", summary.Dimension))
	return summary, nil
}

// Resume readies the pipeline over an index that already holds vectors,
// such as one loaded from disk. Corpus-dependent embedders are prepared
// from the stored chunk texts.
func (p *Pipeline) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.built {
		return fmt.Errorf("%w: pipeline already built", domain.ErrIndexSealed)
	}
	if l, ok := p.index.(metaLister); ok && p.index.Len() > 0 {
		metas := l.Metas()
		texts := make([]string, len(metas))
		for i, m := range metas {
			texts[i] = m.Text
		}
		if err := p.embedder.Prepare(texts); err != nil {
			return fmt.Errorf("failed to prepare embedder %s: %w", p.embedder.Name(), err)
		}
	}
	p.built = true
	return nil
}

// Index returns the index the pipeline writes to.
func (p *Pipeline) Index() vectorstore.Index { return p.index }

// Match returns the top evidence for claim.
func (p *Pipeline) Match(ctx context.Context, claim string, topK int) ([]domain.Match, error) {
	return p.matcher.Match(ctx, claim, topK)
}

// ClaimResult is the match output of one claim.
type ClaimResult struct {
	Claim   string         `json:"claim"`
	Matches []domain.Match `json:"matches"`
}

// MatchClaims matches every claim, a few at a time. Results keep the input
// order. The first failure cancels the remaining claims.
func (p *Pipeline) MatchClaims(ctx context.Context, claims []string, topK int) ([]ClaimResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidConfig, topK)
	}
	out := make([]ClaimResult, len(claims))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, claim := range claims {
		g.Go(func() error {
			matches, err := p.matcher.Match(gctx, claim, topK)
			if err != nil {
				return fmt.Errorf("claim %d: %w", i, err)
			}
			out[i] = ClaimResult{Claim: claim, Matches: matches}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Answer is a generated reply to a claim and the evidence it was built from.
type Answer struct {
	Claim     string         `json:"claim"`
	Text      string         `json:"answer"`
	Generator string         `json:"generator"`
	Matches   []domain.Match `json:"matches"`
}

// ErrNoGenerator is returned by Answer on a pipeline built without a generator.
var ErrNoGenerator = errors.New("no answer generator configured")

// Answer retrieves evidence for claim and asks the generator to answer from
// the full text of the matched chunks.
func (p *Pipeline) Answer(ctx context.Context, claim string, topK int) (*Answer, error) {
	if p.generator == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, ErrNoGenerator)
	}
	hits, err := p.matcher.Hits(ctx, claim, topK)
	if err != nil {
		return nil, err
	}
	ans := &Answer{Claim: claim, Generator: p.generator.Name(), Matches: make([]domain.Match, len(hits))}
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Meta.Text
		ans.Matches[i] = matcher.MatchOf(h)
	}
	if len(passages) == 0 {
		return ans, nil
	}
	text, err := p.generator.Generate(ctx, claim, passages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	ans.Text = text
	return ans, nil
}
