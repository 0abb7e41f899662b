// Package gemini generates answers with a Gemini text model.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rahulmurugan/fact-check/internal/answer"
	"github.com/rahulmurugan/fact-check/internal/domain"
)

const (
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 150
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKeyEnv string
	Model     string
	MaxTokens int
}

// Generator implements answer.Generator with the Gemini API.
type Generator struct {
	client *genai.Client
	model  contentGenerator
	name   string
}

var _ answer.Generator = (*Generator)(nil)

// New opens a Gemini client. Close it when done.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfig, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", domain.ErrProvider, err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	return &Generator{client: client, model: model, name: cfg.Model}, nil
}

func (g *Generator) Name() string { return "gemini" }

// Generate sends the prompt built from query and passages and joins the text
// parts of every candidate.
func (g *Generator) Generate(ctx context.Context, query string, passages []string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(answer.BuildPrompt(query, passages)))
	if err != nil {
		return "", fmt.Errorf("%w: gemini %s: %v", domain.ErrProvider, g.name, err)
	}
	var parts []string
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, p := range cand.Content.Parts {
				if text, ok := p.(genai.Text); ok {
					parts = append(parts, string(text))
				}
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: gemini %s returned no text", domain.ErrMalformedResponse, g.name)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// Close releases the underlying client.
func (g *Generator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
