package provider

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider/gemini"
	"github.com/mohammad-safakhou/newsrag/provider/jina"
)

// Embedder converts text to a fixed-length vector via an external service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator invokes an external generative model.
type Generator interface {
	// Probe tests the ordered candidate models and adopts the first working
	// one. Until a probe succeeds every Generate call fails.
	Probe(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (models.Generation, error)
	// ActiveModel reports the adopted model identifier, or "" before a
	// successful probe.
	ActiveModel() string
}

// NewEmbedder creates the embedding backend client.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding api key not set (NEWSRAG_EMBEDDING_API_KEY)")
	}
	return jina.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
}

// NewGenerator creates the generative backend client. The returned generator
// is unprobed; callers run Probe during startup.
func NewGenerator(cfg config.GeminiConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key not set (NEWSRAG_GEMINI_API_KEY)")
	}
	if len(cfg.Models) == 0 {
		return nil, errors.New("no gemini candidate models configured")
	}
	return gemini.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Models, cfg.Timeout), nil
}
