package corpus

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

// Status is the load outcome of one source.
type Status string

const (
	StatusLoaded Status = "loaded"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Report describes what happened to one source during a build.
type Report struct {
	Source  string
	Status  Status
	Records int
	Dropped int
	Err     error
}

// Result is the built corpus plus one report per source, in source order.
type Result struct {
	Records []domain.Record
	Reports []Report
}

// Failed returns the reports of sources that could not be read.
func (r *Result) Failed() []Report {
	var out []Report
	for _, rep := range r.Reports {
		if rep.Status == StatusFailed {
			out = append(out, rep)
		}
	}
	return out
}

type Options struct {
	// Clean applies Clean to every record text before it is kept.
	Clean bool
}

// Builder merges sources into one corpus. A failing source is logged and
// skipped; it never aborts the build.
type Builder struct {
	opts   Options
	logger *zap.Logger
}

func NewBuilder(opts Options, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{opts: opts, logger: logger}
}

// Build reads every source in order. Each record is tagged with the name of
// the source it came from. Only context cancellation returns an error.
func (b *Builder) Build(ctx context.Context, sources []Source) (*Result, error) {
	res := &Result{}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep := Report{Source: src.Name()}
		recs, err := src.Records(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			rep.Status = StatusFailed
			rep.Err = err
			b.logger.Warn("skipping source", zap.String("source", rep.Source), zap.Error(err))
			res.Reports = append(res.Reports, rep)
			continue
		}

		for _, rec := range recs {
			if b.opts.Clean {
				rec.Text = Clean(rec.Text)
			}
			if strings.TrimSpace(rec.Text) == "" {
				rep.Dropped++
				continue
			}
			rec.SourceID = rep.Source
			res.Records = append(res.Records, rec)
			rep.Records++
		}

		rep.Status = StatusLoaded
		if rep.Records == 0 {
			rep.Status = StatusEmpty
		}
		b.logger.Debug("loaded source",
			zap.String("source", rep.Source),
			zap.Int("records", rep.Records),
			zap.Int("dropped", rep.Dropped))
		res.Reports = append(res.Reports, rep)
	}
	b.logger.Info("corpus built",
		zap.Int("sources", len(sources)),
		zap.Int("failed", len(res.Failed())),
		zap.Int("records", len(res.Records)))
	return res, nil
}
