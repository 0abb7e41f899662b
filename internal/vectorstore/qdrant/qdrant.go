// Package qdrant implements the vector index port over the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/rahulmurugan/fact-check/internal/domain"
	"github.com/rahulmurugan/fact-check/internal/vectorstore"
)

var _ vectorstore.Index = (*Storage)(nil)

// Storage is a minimal REST client to one Qdrant collection.
// The first Add drops whatever the collection held and recreates it, so a
// Storage always mirrors exactly one build. Point ids are row numbers,
// so results can be ordered the same way as the in-memory index.
type Storage struct {
	url        string
	apiKey     string
	collection string
	metric     domain.Metric
	client     *http.Client

	mu        sync.RWMutex
	dimension int
	count     int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Metric     domain.Metric
	Timeout    time.Duration
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant url and collection are required", domain.ErrInvalidConfig)
	}
	if _, err := distance(cfg.Metric); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		metric:     cfg.Metric,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func distance(m domain.Metric) (string, error) {
	switch m {
	case domain.MetricInnerProduct:
		return "Dot", nil
	case domain.MetricL2:
		return "Euclid", nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, m)
}

func (s *Storage) Metric() domain.Metric { return s.metric }

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

type point struct {
	ID      int              `json:"id"`
	Vector  []float32        `json:"vector"`
	Payload domain.ChunkMeta `json:"payload"`
}

func (s *Storage) Add(ctx context.Context, vectors [][]float32, metas []domain.ChunkMeta) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("%w: %d vectors but %d metadata rows", domain.ErrInvalidConfig, len(vectors), len(metas))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(vectors) == 0 {
		return nil
	}
	dim := s.dimension
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
	if s.dimension == 0 {
		if err := s.dropCollection(ctx); err != nil {
			return err
		}
		if err := s.createCollection(ctx, dim); err != nil {
			return err
		}
		s.dimension = dim
	}

	points := make([]point, len(vectors))
	for i := range vectors {
		points[i] = point{ID: s.count + i, Vector: vectors[i], Payload: metas[i]}
	}
	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil); err != nil {
		return err
	}
	s.count += len(vectors)
	return nil
}

// dropCollection deletes the collection; a missing one is not an error.
func (s *Storage) dropCollection(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *Storage) createCollection(ctx context.Context, dim int) error {
	dist, _ := distance(s.metric)
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": dist,
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil)
}

type searchResponse struct {
	Result []struct {
		ID      int              `json:"id"`
		Score   float64          `json:"score"`
		Payload domain.ChunkMeta `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Search(ctx context.Context, query []float32, k int) ([]vectorstore.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfig, k)
	}
	s.mu.RLock()
	dim, count := s.dimension, s.count
	s.mu.RUnlock()
	if count == 0 {
		return []vectorstore.Hit{}, nil
	}
	if len(query) != dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", domain.ErrDimensionMismatch, len(query), dim)
	}
	if k > count {
		k = count
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp searchResponse
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]vectorstore.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		if r.ID < 0 || r.ID >= count {
			return nil, fmt.Errorf("%w: qdrant returned row %d of %d", domain.ErrMalformedResponse, r.ID, count)
		}
		hits = append(hits, vectorstore.Hit{Row: r.ID, Meta: r.Payload, Score: r.Score})
	}
	// qdrant reports Euclid as a plain distance; keep scores comparable with the memory index
	if s.metric == domain.MetricL2 {
		for i := range hits {
			hits[i].Score *= hits[i].Score
		}
	}
	vectorstore.Rank(s.metric, hits)
	return hits, nil
}

// Clear drops the collection and resets the local counters.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dropCollection(ctx); err != nil {
		return err
	}
	s.dimension, s.count = 0, 0
	return nil
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %v", domain.ErrProvider, method, url, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %v", domain.ErrProvider, method, url, err)
	}
	if resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, msg: fmt.Sprintf("qdrant %s %s failed: %s", method, url, resp.Status)}
	}
	if out != nil {
		if err := sonic.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("%w: qdrant %s: %v", domain.ErrMalformedResponse, url, err)
		}
	}
	return nil
}

// statusError is a non-2xx reply. It matches domain.ErrProvider.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return domain.ErrProvider.Error() + ": " + e.msg }

func (e *statusError) Unwrap() error { return domain.ErrProvider }
