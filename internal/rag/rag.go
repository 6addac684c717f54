// Package rag implements schema-hint retrieval and SQL generation: embed
// the question, pull the top-K similar chunks from the vector store, and
// ask the model for a single SQL statement grounded in them.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"schema-rag/internal/config"
	"schema-rag/internal/llmservice"
	"schema-rag/internal/models"
	"schema-rag/internal/prompt"
)

// Embedder turns a question into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns the most similar stored chunks for an embedding.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, k int) ([]models.ContextChunk, error)
}

// Completer runs a text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llmservice.Options) (string, error)
}

// Deterministic-leaning temperature for SQL generation.
const sqlTemperature = 0.1

// Service orchestrates retrieval and SQL generation. Stateless across
// calls; chunks live only for the request that retrieved them.
type Service struct {
	embedder Embedder
	store    Searcher
	llm      Completer
	cfg      *config.RAGConfig
}

func NewService(embedder Embedder, store Searcher, llm Completer, cfg *config.RAGConfig) *Service {
	return &Service{embedder: embedder, store: store, llm: llm, cfg: cfg}
}

// Retrieve embeds the question and returns the top-K schema hints, most
// similar first. An empty store yields an empty slice.
func (s *Service) Retrieve(ctx context.Context, question string) ([]models.ContextChunk, error) {
	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	chunks, err := s.store.Search(ctx, embedding, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("searching schema hints: %w", err)
	}
	log.Debug().Int("hints", len(chunks)).Msg("Retrieved schema hints")
	return chunks, nil
}

// GenerateSQL produces a single SQL statement for the question. The result
// is never executed or validated against a live schema here.
func (s *Service) GenerateSQL(ctx context.Context, question string) (string, error) {
	chunks, err := s.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	p := prompt.SQL(question, chunks, s.cfg.SQLDialect)
	raw, err := s.llm.Complete(ctx, p, llmservice.Options{Temperature: sqlTemperature})
	if err != nil {
		return "", err
	}

	sql, err := ExtractSQL(raw)
	if err != nil {
		return "", err
	}
	log.Debug().Str("sql", sql).Msg("Generated SQL")
	return sql, nil
}

var sqlKeywords = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "EXEC"}

// ExtractSQL strips surrounding markdown fences and rejects text that
// contains no recognizable SQL keyword, so non-SQL prose never passes
// downstream.
func ExtractSQL(raw string) (string, error) {
	sql := llmservice.StripFences(raw)
	if sql == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrSQLExtraction)
	}
	upper := strings.ToUpper(sql)
	for _, kw := range sqlKeywords {
		if strings.Contains(upper, kw) {
			return sql, nil
		}
	}
	return "", fmt.Errorf("%w: %q", models.ErrSQLExtraction, truncate(sql, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
