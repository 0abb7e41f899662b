package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmurugan/fact-check/internal/chunker"
	"github.com/rahulmurugan/fact-check/internal/domain"
	"github.com/rahulmurugan/fact-check/internal/embedding/openai"
	"github.com/rahulmurugan/fact-check/internal/vectorstore/memory"
)

// vectorServer answers every embeddings call with the same 3-d vector,
// the way a remote provider looks to a pipeline over a loaded index.
func vectorServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := sonic.Marshal(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{1, 0, 0}}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Run with -race: remote embedders must tolerate concurrent first calls.
func TestMatchClaims_ConcurrentRemoteEmbedder(t *testing.T) {
	ctx := context.Background()
	t.Setenv("FACTCHECK_TEST_KEY", "k")
	srv := vectorServer(t)

	idx, err := memory.New(domain.MetricInnerProduct)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx,
		[][]float32{{1, 0, 0}, {0, 1, 0}},
		[]domain.ChunkMeta{
			{RecordID: "r0", SourceID: "doc_a", Text: "first"},
			{RecordID: "r1", SourceID: "doc_b", Text: "second"},
		}))
	idx.Seal()

	client, err := openai.NewClient(openai.Config{BaseURL: srv.URL, APIKeyEnv: "FACTCHECK_TEST_KEY"})
	require.NoError(t, err)
	ch, err := chunker.NewWordChunker(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	p, err := New(Options{Chunker: ch, Embedder: client, Index: idx, Concurrency: 8})
	require.NoError(t, err)
	require.NoError(t, p.Resume())
	assert.Zero(t, client.Dimension())

	claims := make([]string, 8)
	for i := range claims {
		claims[i] = fmt.Sprintf("claim %d", i)
	}
	got, err := p.MatchClaims(ctx, claims, 1)
	require.NoError(t, err)
	require.Len(t, got, len(claims))
	for i, res := range got {
		assert.Equal(t, claims[i], res.Claim)
		require.Len(t, res.Matches, 1)
		assert.Equal(t, "doc_a", res.Matches[0].DocumentName)
	}
	assert.Equal(t, 3, client.Dimension())
}
