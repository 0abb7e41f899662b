package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rahulmurugan/fact-check/internal/chunker"
	"github.com/rahulmurugan/fact-check/internal/domain"
)

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// CorpusConfig controls how source records are loaded.
type CorpusConfig struct {
	CleanText bool `yaml:"clean_text"`
}

// ChunkerConfig configures the word window chunker.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	// nil means the default of 3; an explicit 0 disables retries.
	MaxRetries  *int   `yaml:"max_retries,omitempty"`
}

// Retries returns the configured retry count.
func (o *OpenAIEmbedderConfig) Retries() int {
	if o.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *o.MaxRetries
}

const defaultMaxRetries = 3

// GeminiEmbedderConfig holds configuration for the Gemini embedder.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	PauseMs   int    `yaml:"pause_ms"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
}

// VectorStoreConfig selects and configures the vector index.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Metric string        `yaml:"metric"`
	Dir    string        `yaml:"dir"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// MatcherConfig configures claim matching.
type MatcherConfig struct {
	TopK        int `yaml:"top_k"`
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"`
}

// GeminiAnswerConfig configures the Gemini answer generator.
type GeminiAnswerConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// AnswerConfig selects the answer generator.
type AnswerConfig struct {
	Type         string              `yaml:"type"`
	MaxSentences int                 `yaml:"max_sentences"`
	Gemini       *GeminiAnswerConfig `yaml:"gemini,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log         LogConfig         `yaml:"log"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Matcher     MatcherConfig     `yaml:"matcher"`
	Answer      AnswerConfig      `yaml:"answer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/factcheck/config.yaml.
// If neither exists, it writes defaults to ~/.config/factcheck/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "factcheck", "config.yaml"), nil
}

// Default returns the configuration used when no file is present: local
// TF-IDF embeddings in an in-memory inner product index.
func Default() *AppConfig {
	return &AppConfig{
		Log:         LogConfig{Level: "info", Format: "console"},
		Chunker:     ChunkerConfig{Size: chunker.DefaultChunkSize, Overlap: chunker.DefaultOverlap},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory", Metric: string(domain.MetricInnerProduct), Dir: "vector_db"},
		Matcher:     MatcherConfig{TopK: 3, BatchSize: 64, Concurrency: 4},
		Answer:      AnswerConfig{Type: "extractive", MaxSentences: 3},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
		if o.MaxRetries == nil {
			n := defaultMaxRetries
			o.MaxRetries = &n
		}
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "factcheck"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.Answer.Type == "gemini" {
		if cfg.Answer.Gemini == nil {
			cfg.Answer.Gemini = &GeminiAnswerConfig{}
		}
		if cfg.Answer.Gemini.APIKeyEnv == "" {
			cfg.Answer.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
}

// Validate checks the settings every component relies on.
func (c *AppConfig) Validate() error {
	if err := chunker.Validate(c.Chunker.Size, c.Chunker.Overlap); err != nil {
		return err
	}
	if _, err := domain.ParseMetric(c.VectorStore.Metric); err != nil {
		return err
	}
	switch c.Embedder.Type {
	case "tfidf", "openai", "gemini":
	default:
		return fmt.Errorf("%w: unknown embedder type %q", domain.ErrInvalidConfig, c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case "memory", "qdrant":
	default:
		return fmt.Errorf("%w: unknown vector store type %q", domain.ErrInvalidConfig, c.VectorStore.Type)
	}
	switch c.Answer.Type {
	case "extractive", "gemini":
	default:
		return fmt.Errorf("%w: unknown answer type %q", domain.ErrInvalidConfig, c.Answer.Type)
	}
	if c.Matcher.TopK <= 0 {
		return fmt.Errorf("%w: matcher.top_k must be positive, got %d", domain.ErrInvalidConfig, c.Matcher.TopK)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", domain.ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
