package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	t.Setenv("FACTCHECK_TEST_KEY", "secret")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "FACTCHECK_TEST_KEY", Model: "m", BatchSize: 2, MaxRetries: retries})
	require.NoError(t, err)
	c.sleep = func(time.Duration) {}
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("FACTCHECK_EMPTY_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "FACTCHECK_EMPTY_KEY"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestEmbed_OpenAIShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, c.Dimension())
}

func TestEmbed_OllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"embedding":[1,0]}`)
	}))
	defer srv.Close()

	vec, err := newTestClient(t, srv.URL, 0).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestEmbed_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"answer":"I think the vector is [1, 2]"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 3).Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestEmbed_RetriesThenProviderError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 2).Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbed_RecoversAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"index":0,"embedding":[1]}]}`)
	}))
	defer srv.Close()

	vec, err := newTestClient(t, srv.URL, 2).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
}

func TestEmbed_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 5).Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedBatch_SplitsAndOrders(t *testing.T) {
	var batches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		batches.Add(1)
		var body struct {
			Input []string `json:"input"`
		}
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, sonic.Unmarshal(raw, &body))
		// answer in reverse order; the client must sort on index
		var parts []string
		for i := len(body.Input) - 1; i >= 0; i-- {
			n := strings.TrimPrefix(body.Input[i], "t")
			parts = append(parts, `{"index":`+itoa(i)+`,"embedding":[`+n+`]}`)
		}
		_, _ = io.WriteString(w, `{"data":[`+strings.Join(parts, ",")+`]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	vecs, err := c.EmbedBatch(context.Background(), []string{"t1", "t2", "t3", "t4", "t5"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for i, v := range vecs {
		assert.Equal(t, []float32{float32(i + 1)}, v)
	}
	assert.Equal(t, int32(3), batches.Load())
}

func itoa(i int) string {
	return string(rune('0' + i))
}
