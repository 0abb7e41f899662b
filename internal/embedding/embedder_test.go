package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

// stubEmbedder returns canned vectors keyed by text.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	dim     int
}

func (s *stubEmbedder) Name() string                  { return "stub" }
func (s *stubEmbedder) Prepare(corpus []string) error { return nil }
func (s *stubEmbedder) Dimension() int                { return s.dim }
func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

type batchStub struct {
	stubEmbedder
	out [][]float32
}

func (b *batchStub) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return b.out, nil
}

func TestGuard_NormalizesVectors(t *testing.T) {
	g := NewGuard(&stubEmbedder{vectors: map[string][]float32{"a": {3, 4}}})
	v, err := g.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, 2, g.Dimension())
}

func TestGuard_ZeroVectorPassesThrough(t *testing.T) {
	g := NewGuard(&stubEmbedder{vectors: map[string][]float32{"z": {0, 0, 0}}})
	v, err := g.Embed(context.Background(), "z")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestGuard_RejectsMalformedVectors(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	g := NewGuard(&stubEmbedder{vectors: map[string][]float32{
		"ok":    {1, 0},
		"empty": {},
		"nan":   {nan, 1},
		"inf":   {inf, 1},
		"long":  {1, 0, 0},
	}})
	ctx := context.Background()
	_, err := g.Embed(ctx, "ok")
	require.NoError(t, err)

	for _, text := range []string{"empty", "nan", "inf", "long", "missing"} {
		_, err := g.Embed(ctx, text)
		assert.ErrorIs(t, err, domain.ErrMalformedResponse, text)
	}
}

func TestGuard_PropagatesProviderError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGuard(&stubEmbedder{err: boom})
	_, err := g.Embed(context.Background(), "a")
	assert.ErrorIs(t, err, boom)
}

func TestGuard_PrepareResetsDimension(t *testing.T) {
	s := &stubEmbedder{vectors: map[string][]float32{"a": {1, 0}, "b": {1, 0, 0}}}
	g := NewGuard(s)
	_, err := g.Embed(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, g.Prepare([]string{"b"}))
	_, err = g.Embed(context.Background(), "b")
	assert.NoError(t, err)
}

func TestGuard_EmbedBatch(t *testing.T) {
	t.Run("falls back to single embeds", func(t *testing.T) {
		g := NewGuard(&stubEmbedder{vectors: map[string][]float32{"a": {2, 0}, "b": {0, 5}}})
		vecs, err := g.EmbedBatch(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	})

	t.Run("uses batch call", func(t *testing.T) {
		g := NewGuard(&batchStub{out: [][]float32{{0, 2}, {2, 0}}})
		vecs, err := g.EmbedBatch(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{0, 1}, {1, 0}}, vecs)
	})

	t.Run("count mismatch", func(t *testing.T) {
		g := NewGuard(&batchStub{out: [][]float32{{1}}})
		_, err := g.EmbedBatch(context.Background(), []string{"a", "b"})
		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []float32{3, 4}
	out := Normalize(in)
	assert.Equal(t, []float32{3, 4}, in)
	assert.InDelta(t, 1.0, math.Hypot(float64(out[0]), float64(out[1])), 1e-6)
}
