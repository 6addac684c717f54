// Package embedding wraps the configured embedding provider; it turns text
// into a fixed-length vector and nothing else. Retry policy belongs to the
// caller, not here.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"schema-rag/internal/config"
	"schema-rag/internal/models"
)

// Embedder is the minimal capability this gateway needs from langchaingo.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Gateway validates provider output and maps failures onto the error
// taxonomy. Safe for concurrent use.
type Gateway struct {
	embedder  Embedder
	dimension int
	timeout   time.Duration
}

// New builds the gateway for the provider named in cfg.
func New(ctx context.Context, cfg *config.EmbeddingConfig) (*Gateway, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	return NewWithEmbedder(embedder, cfg), nil
}

// NewWithEmbedder wraps an already-constructed embedder. Useful with fakes.
func NewWithEmbedder(e Embedder, cfg *config.EmbeddingConfig) *Gateway {
	return &Gateway{
		embedder:  e,
		dimension: cfg.Dimension,
		timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
	}
}

func newClient(ctx context.Context, cfg *config.EmbeddingConfig) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case "googleai":
		return googleai.New(ctx,
			googleai.WithAPIKey(cfg.Key),
			googleai.WithDefaultEmbeddingModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Embed converts text into an embedding vector. Upstream failures, timeouts
// and malformed vectors (wrong dimensionality, non-numeric values) all
// surface as models.ErrProvider.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	vec, err := g.embedder.EmbedQuery(callCtx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding vector", models.ErrProvider)
	}
	if g.dimension > 0 && len(vec) != g.dimension {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, want %d", models.ErrProvider, len(vec), g.dimension)
	}
	for _, v := range vec {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: embedding contains non-numeric values", models.ErrProvider)
		}
	}
	return vec, nil
}
