package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 150, cfg.Chunker.Size)
	assert.Equal(t, 30, cfg.Chunker.Overlap)
	assert.Equal(t, 3, cfg.Matcher.TopK)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
vector_store:
  type: qdrant
  metric: l2
matcher:
  top_k: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 150, cfg.Chunker.Size)
	assert.Equal(t, 5, cfg.Matcher.TopK)
	assert.Equal(t, 64, cfg.Matcher.BatchSize)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)
	assert.Equal(t, 3, cfg.Embedder.OpenAI.Retries())
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "factcheck", cfg.VectorStore.Qdrant.Collection)
}

func TestLoad_ZeroRetriesIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
  openai:
    max_retries: 0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.OpenAI.MaxRetries)
	assert.Equal(t, 0, cfg.Embedder.OpenAI.Retries())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Answer = AnswerConfig{Type: "gemini", MaxSentences: 2, Gemini: &GeminiAnswerConfig{APIKeyEnv: "KEY", Model: "m", MaxTokens: 99}}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "factcheck", "config.yaml"), path)
	assert.Equal(t, Default(), cfg)
	assert.FileExists(t, path)

	require.NoError(t, os.WriteFile("config.yaml", []byte("matcher:\n  top_k: 7\n"), 0o644))
	cfg, path, err = LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)
	assert.Equal(t, 7, cfg.Matcher.TopK)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*AppConfig){
		"overlap equals size": func(c *AppConfig) { c.Chunker.Overlap = c.Chunker.Size },
		"negative overlap":    func(c *AppConfig) { c.Chunker.Overlap = -1 },
		"zero size":           func(c *AppConfig) { c.Chunker.Size = 0 },
		"metric":              func(c *AppConfig) { c.VectorStore.Metric = "manhattan" },
		"embedder":            func(c *AppConfig) { c.Embedder.Type = "bert" },
		"store":               func(c *AppConfig) { c.VectorStore.Type = "faiss" },
		"answer":              func(c *AppConfig) { c.Answer.Type = "gpt" },
		"top k":               func(c *AppConfig) { c.Matcher.TopK = 0 },
		"log format":          func(c *AppConfig) { c.Log.Format = "xml" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfig)
		})
	}
}
