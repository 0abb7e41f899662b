// Package tfidf is a local, deterministic TF-IDF embedder.
//
// Weighting follows the usual smoothed scheme: raw term counts times
// ln((1+n)/(1+df)) + 1, L2-normalized. Terms are lower-cased runs of
// letters and digits; English stop words and one-letter terms are dropped,
// numbers of any length are kept so doses and durations stay searchable.
package tfidf

import (
	"context"
	"errors"
	"math"
	"sort"
)

var (
	errNotPrepared = errors.New("tfidf embedder not prepared")
	errNoTerms     = errors.New("tfidf: corpus has no indexable terms")
)

// Embedder maps text onto a vocabulary fixed by Prepare.
// After Prepare it is read-only and safe for concurrent use.
type Embedder struct {
	terms map[string]int
	idf   []float64
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare fixes the vocabulary and document frequencies from corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		for term := range counts(text) {
			df[term]++
		}
	}
	if len(df) == 0 {
		return errNoTerms
	}

	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	n := float64(len(corpus))
	cols := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	for col, term := range vocab {
		cols[term] = col
		idf[col] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	e.terms, e.idf = cols, idf
	return nil
}

// Dimension is the vocabulary size, 0 before Prepare.
func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed returns the unit-length TF-IDF vector of text.
// Text without any vocabulary term maps to the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.terms == nil {
		return nil, errNotPrepared
	}
	vec := make([]float32, len(e.idf))
	weights := make(map[int]float64)
	var sq float64
	for term, tf := range counts(text) {
		col, ok := e.terms[term]
		if !ok {
			continue
		}
		w := float64(tf) * e.idf[col]
		weights[col] = w
		sq += w * w
	}
	if sq == 0 {
		return vec, nil
	}
	norm := math.Sqrt(sq)
	for col, w := range weights {
		vec[col] = float32(w / norm)
	}
	return vec, nil
}

// EmbedBatch embeds texts in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
