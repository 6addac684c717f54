// Package ingest loads a schema-guide document into the vector store:
// parse into chunks, embed each, replace the collection contents. It runs
// as a batch utility, never at request time.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"schema-rag/internal/config"
	"schema-rag/internal/helper"
	"schema-rag/internal/models"
	"schema-rag/internal/parser"
)

// Embedder turns chunk text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the writable side of the vector store.
type Store interface {
	Reset(ctx context.Context) error
	Add(ctx context.Context, docs []models.ChunkEmbedding) error
	Count(ctx context.Context) int
}

type Service struct {
	embedder Embedder
	store    Store
	cfg      *config.RAGConfig
}

func NewService(embedder Embedder, store Store, cfg *config.RAGConfig) *Service {
	return &Service{embedder: embedder, store: store, cfg: cfg}
}

// IngestFile replaces the collection contents with the chunks of the given
// schema guide. The collection is reset first so re-running the ingestion
// updates rather than duplicates. Returns the number of stored chunks.
func (s *Service) IngestFile(ctx context.Context, filePath string) (int, error) {
	chunks, err := parser.ParseSchemaGuide(filePath, s.cfg)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no content chunks in %s", filePath)
	}
	log.Info().Int("chunks", len(chunks)).Str("file", filePath).Msg("Parsed schema guide")

	source := filepath.Base(filePath)
	docs := make([]models.ChunkEmbedding, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return 0, fmt.Errorf("embedding chunk %d: %w", chunk.ChunkID, err)
		}
		id, err := helper.NewChunkID()
		if err != nil {
			return 0, err
		}
		docs = append(docs, models.ChunkEmbedding{
			ID:             id,
			Content:        chunk.Content,
			Embedding:      embedding,
			SourceFilename: source,
			PageNumber:     chunk.PageNumber,
			ChunkID:        chunk.ChunkID,
		})
	}

	if err := s.store.Reset(ctx); err != nil {
		return 0, err
	}
	if err := s.store.Add(ctx, docs); err != nil {
		return 0, err
	}
	log.Info().Int("stored", s.store.Count(ctx)).Msg("Schema guide ingested")
	return len(docs), nil
}

// DryRun parses the guide and prints the resulting chunks without touching
// the store or the embedding provider.
func (s *Service) DryRun(filePath string) error {
	chunks, err := parser.ParseSchemaGuide(filePath, s.cfg)
	if err != nil {
		return err
	}
	helper.PrettyPrint(chunks)
	log.Info().Int("chunks", len(chunks)).Msg("Dry run complete, nothing stored")
	return nil
}
