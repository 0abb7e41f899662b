package qdrant

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

type fakeQdrant struct {
	mu       sync.Mutex
	created  map[string]any
	points   []point
	search   string
	requests []string
	url      string
}

func (f *fakeQdrant) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/claims":
			if f.created != nil {
				w.WriteHeader(http.StatusConflict)
				return
			}
			var req map[string]any
			assert.NoError(t, sonic.Unmarshal(body, &req))
			f.created = req
		case r.Method == http.MethodPut && r.URL.Path == "/collections/claims/points":
			var req struct {
				Points []point `json:"points"`
			}
			assert.NoError(t, sonic.Unmarshal(body, &req))
			f.points = append(f.points, req.Points...)
		case r.Method == http.MethodPost && r.URL.Path == "/collections/claims/points/search":
			_, _ = io.WriteString(w, f.search)
			return
		case r.Method == http.MethodDelete && r.URL.Path == "/collections/claims":
			if f.created == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			f.created, f.points = nil, nil
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}
}

func newStorage(t *testing.T, m domain.Metric) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	s, err := NewStorage(Config{URL: srv.URL, Collection: "claims", Metric: m})
	require.NoError(t, err)
	fake.url = srv.URL
	return s, fake
}

func metas(ids ...string) []domain.ChunkMeta {
	out := make([]domain.ChunkMeta, len(ids))
	for i, id := range ids {
		out[i] = domain.ChunkMeta{RecordID: id, SourceID: "doc_" + id, Type: domain.RecordParagraph, Text: "text " + id}
	}
	return out
}

func TestNewStorage_Validation(t *testing.T) {
	_, err := NewStorage(Config{Collection: "c", Metric: domain.MetricL2})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	_, err = NewStorage(Config{URL: "http://x", Collection: "c", Metric: "hamming"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestAdd_CreatesCollectionOnce(t *testing.T) {
	ctx := context.Background()
	s, fake := newStorage(t, domain.MetricInnerProduct)

	require.NoError(t, s.Add(ctx, [][]float32{{1, 0}, {0, 1}}, metas("a", "b")))
	require.NoError(t, s.Add(ctx, [][]float32{{1, 1}}, metas("c")))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Dimension())
	vectors := fake.created["vectors"].(map[string]any)
	assert.Equal(t, "Dot", vectors["distance"])
	assert.EqualValues(t, 2, vectors["size"])
	assert.Equal(t, []string{
		"DELETE /collections/claims",
		"PUT /collections/claims",
		"PUT /collections/claims/points",
		"PUT /collections/claims/points",
	}, fake.requests)

	require.Len(t, fake.points, 3)
	assert.Equal(t, 2, fake.points[2].ID)
	assert.Equal(t, "c", fake.points[2].Payload.RecordID)
}

func TestAdd_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s, fake := newStorage(t, domain.MetricL2)
	require.NoError(t, s.Add(ctx, [][]float32{{1, 0}}, metas("a")))

	err := s.Add(ctx, [][]float32{{1, 0, 0}}, metas("b"))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, s.Len())
	assert.Len(t, fake.points, 1)
}

func TestSearch_ReordersAndSquaresEuclid(t *testing.T) {
	ctx := context.Background()
	s, fake := newStorage(t, domain.MetricL2)
	require.NoError(t, s.Add(ctx, [][]float32{{1, 0}, {0, 1}, {1, 1}}, metas("a", "b", "c")))
	fake.search = `{"result":[
		{"id":2,"score":2.0,"payload":{"record_id":"c","source_id":"doc_c","type":"paragraph","start_word":0,"end_word":1,"text":"text c"}},
		{"id":1,"score":1.0,"payload":{"record_id":"b","source_id":"doc_b","type":"paragraph","start_word":0,"end_word":1,"text":"text b"}},
		{"id":0,"score":1.0,"payload":{"record_id":"a","source_id":"doc_a","type":"paragraph","start_word":0,"end_word":1,"text":"text a"}}
	]}`

	hits, err := s.Search(ctx, []float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 0, hits[0].Row)
	assert.Equal(t, 1, hits[1].Row)
	assert.Equal(t, 2, hits[2].Row)
	assert.InDelta(t, 4.0, hits[2].Score, 1e-9)
	assert.Equal(t, "doc_a", hits[0].Meta.SourceID)
}

func TestSearch_Errors(t *testing.T) {
	ctx := context.Background()
	s, fake := newStorage(t, domain.MetricInnerProduct)

	hits, err := s.Search(ctx, []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Empty(t, fake.requests)

	_, err = s.Search(ctx, []float32{1}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	require.NoError(t, s.Add(ctx, [][]float32{{1, 0}}, metas("a")))
	_, err = s.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	fake.search = `not json`
	_, err = s.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestServerErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	s, err := NewStorage(Config{URL: srv.URL, Collection: "claims", Metric: domain.MetricL2})
	require.NoError(t, err)

	err = s.Add(context.Background(), [][]float32{{1}}, metas("a"))
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Dimension())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, _ := newStorage(t, domain.MetricInnerProduct)
	require.NoError(t, s.Add(ctx, [][]float32{{1}}, metas("a")))
	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Dimension())
}

func TestAdd_RebuildReplacesCollection(t *testing.T) {
	ctx := context.Background()
	first, fake := newStorage(t, domain.MetricInnerProduct)
	require.NoError(t, first.Add(ctx, [][]float32{{1, 0}, {0, 1}, {1, 1}, {2, 1}}, metas("a", "b", "c", "d")))
	require.Len(t, fake.points, 4)

	second, err := NewStorage(Config{URL: fake.url, Collection: "claims", Metric: domain.MetricInnerProduct})
	require.NoError(t, err)
	fake.requests = nil
	require.NoError(t, second.Add(ctx, [][]float32{{0, 1}}, metas("z")))

	assert.Equal(t, []string{
		"DELETE /collections/claims",
		"PUT /collections/claims",
		"PUT /collections/claims/points",
	}, fake.requests)
	require.Len(t, fake.points, 1)
	assert.Equal(t, 0, fake.points[0].ID)
	assert.Equal(t, "z", fake.points[0].Payload.RecordID)
	assert.Equal(t, 1, second.Len())
}

func TestSearch_RejectsRowsBeyondBuild(t *testing.T) {
	ctx := context.Background()
	s, fake := newStorage(t, domain.MetricInnerProduct)
	require.NoError(t, s.Add(ctx, [][]float32{{1, 0}}, metas("a")))
	fake.search = `{"result":[{"id":5,"score":0.9,"payload":{"record_id":"old","source_id":"doc_old","type":"paragraph","start_word":0,"end_word":1,"text":"stale"}}]}`

	_, err := s.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClear_MissingCollection(t *testing.T) {
	s, fake := newStorage(t, domain.MetricL2)
	require.NoError(t, s.Clear(context.Background()))
	assert.Equal(t, []string{"DELETE /collections/claims"}, fake.requests)
}
