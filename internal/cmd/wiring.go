package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/rahulmurugan/fact-check/internal/answer"
	answergemini "github.com/rahulmurugan/fact-check/internal/answer/gemini"
	"github.com/rahulmurugan/fact-check/internal/chunker"
	"github.com/rahulmurugan/fact-check/internal/config"
	"github.com/rahulmurugan/fact-check/internal/corpus"
	"github.com/rahulmurugan/fact-check/internal/domain"
	"github.com/rahulmurugan/fact-check/internal/embedding"
	"github.com/rahulmurugan/fact-check/internal/embedding/gemini"
	"github.com/rahulmurugan/fact-check/internal/embedding/openai"
	"github.com/rahulmurugan/fact-check/internal/embedding/tfidf"
	"github.com/rahulmurugan/fact-check/internal/service"
	"github.com/rahulmurugan/fact-check/internal/vectorstore"
	"github.com/rahulmurugan/fact-check/internal/vectorstore/memory"
	"github.com/rahulmurugan/fact-check/internal/vectorstore/qdrant"
)

// corpusFlags selects the documents to build an index from.
type corpusFlags struct {
	dataDir string // per-document extraction directories
	docsDir string // plain text documents
}

func (f corpusFlags) empty() bool { return f.dataDir == "" && f.docsDir == "" }

func (f corpusFlags) sources() ([]corpus.Source, error) {
	var out []corpus.Source
	if f.dataDir != "" {
		s, err := corpus.DataDir(f.dataDir)
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
	}
	if f.docsDir != "" {
		s, err := corpus.TextDir(f.docsDir)
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
	}
	return out, nil
}

// closers collects resources opened while wiring a pipeline.
type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

func newEmbedder(ctx context.Context, cfg *config.AppConfig) (embedding.Embedder, io.Closer, error) {
	switch cfg.Embedder.Type {
	case "tfidf":
		return tfidf.NewEmbedder(), nil, nil
	case "openai":
		o := cfg.Embedder.OpenAI
		c, err := openai.NewClient(openai.Config{
			BaseURL:    o.BaseURL,
			APIKeyEnv:  o.APIKeyEnv,
			Model:      o.Model,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			BatchSize:  o.BatchSize,
			MaxRetries: o.Retries(),
		})
		return c, nil, err
	case "gemini":
		g := cfg.Embedder.Gemini
		e, err := gemini.New(ctx, gemini.Config{
			APIKeyEnv: g.APIKeyEnv,
			Model:     g.Model,
			Pause:     time.Duration(g.PauseMs) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, err
		}
		return e, e, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, cfg.Embedder.Type)
}

func newGenerator(ctx context.Context, cfg *config.AppConfig) (answer.Generator, io.Closer, error) {
	switch cfg.Answer.Type {
	case "extractive":
		return answer.NewExtractive(cfg.Answer.MaxSentences), nil, nil
	case "gemini":
		g := cfg.Answer.Gemini
		gen, err := answergemini.New(ctx, answergemini.Config{APIKeyEnv: g.APIKeyEnv, Model: g.Model, MaxTokens: g.MaxTokens})
		if err != nil {
			return nil, nil, err
		}
		return gen, gen, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown answer generator %q", domain.ErrInvalidConfig, cfg.Answer.Type)
}

func newIndex(cfg *config.AppConfig) (vectorstore.Index, error) {
	metric, err := domain.ParseMetric(cfg.VectorStore.Metric)
	if err != nil {
		return nil, err
	}
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.New(metric)
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Metric:     metric,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
	}
	return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidConfig, cfg.VectorStore.Type)
}

type pipelineOptions struct {
	corpus    corpusFlags
	indexDir  string
	generator bool
}

// openPipeline builds a fresh index when documents are given, otherwise it
// loads the persisted in-memory index from indexDir.
func openPipeline(ctx context.Context, cfg *config.AppConfig, opts pipelineOptions) (*service.Pipeline, *service.BuildSummary, io.Closer, error) {
	var cls closers
	fail := func(err error) (*service.Pipeline, *service.BuildSummary, io.Closer, error) {
		_ = cls.Close()
		return nil, nil, nil, err
	}

	emb, c, err := newEmbedder(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if c != nil {
		cls = append(cls, c)
	}
	var gen answer.Generator
	if opts.generator {
		gen, c, err = newGenerator(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		if c != nil {
			cls = append(cls, c)
		}
	}
	ch, err := chunker.NewWordChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return fail(err)
	}

	var index vectorstore.Index
	if opts.corpus.empty() {
		if cfg.VectorStore.Type != "memory" {
			return fail(fmt.Errorf("%w: a %s index has to be built from --data or --docs", domain.ErrInvalidConfig, cfg.VectorStore.Type))
		}
		metric, err := domain.ParseMetric(cfg.VectorStore.Metric)
		if err != nil {
			return fail(err)
		}
		if index, err = memory.Load(ctx, opts.indexDir, metric); err != nil {
			return fail(fmt.Errorf("failed to load index from %s: %w", opts.indexDir, err))
		}
	} else if index, err = newIndex(cfg); err != nil {
		return fail(err)
	}

	p, err := service.New(service.Options{
		Builder:     corpus.NewBuilder(corpus.Options{Clean: cfg.Corpus.CleanText}, log.Named("corpus")),
		Chunker:     ch,
		Embedder:    emb,
		Index:       index,
		Generator:   gen,
		Logger:      log.Named("pipeline"),
		BatchSize:   cfg.Matcher.BatchSize,
		Concurrency: cfg.Matcher.Concurrency,
	})
	if err != nil {
		return fail(err)
	}

	if opts.corpus.empty() {
		if err := p.Resume(); err != nil {
			return fail(err)
		}
		log.Info("index loaded", zap.String("dir", opts.indexDir), zap.Int("chunks", index.Len()))
		return p, nil, cls, nil
	}
	sources, err := opts.corpus.sources()
	if err != nil {
		return fail(err)
	}
	summary, err := p.Build(ctx, sources)
	if err != nil {
		return fail(err)
	}
	return p, summary, cls, nil
}
