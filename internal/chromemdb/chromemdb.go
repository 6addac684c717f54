// Package chromemdb is the embedded chromem-go vector store backend.
package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"

	"schema-rag/internal/config"
	"schema-rag/internal/models"
)

// Store wraps a chromem collection. Embeddings are always supplied by the
// caller; chromem's own embedding functions are never used.
type Store struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
}

const compress = false

// NewStore opens (or creates) the configured collection, persistent on disk
// unless cfg.InMemory is set.
func NewStore(cfg *config.StoreConfig) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compress)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
	}

	s := &Store{db: db, collectionName: cfg.Collection}
	if err := s.openCollection(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) openCollection() error {
	c, err := s.db.GetOrCreateCollection(s.collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	s.collection = c
	return nil
}

// Add stores chunks with their precomputed embeddings.
func (s *Store) Add(ctx context.Context, docs []models.ChunkEmbedding) error {
	if len(docs) == 0 {
		return nil
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		chromemDocs[i] = chromem.Document{
			ID:      d.ID,
			Content: d.Content,
			Metadata: map[string]string{
				"source":   d.SourceFilename,
				"page":     fmt.Sprintf("%d", d.PageNumber),
				"chunk_id": fmt.Sprintf("%d", d.ChunkID),
			},
			Embedding: d.Embedding,
		}
	}
	if err := s.collection.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Search returns up to k chunks ordered by descending similarity. An empty
// collection yields an empty result, not an error. k is clamped to the
// collection size because chromem rejects oversized result counts.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]models.ContextChunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: result count must be positive, got %d", models.ErrConfiguration, k)
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	chunks := make([]models.ContextChunk, len(results))
	for i, r := range results {
		chunks[i] = models.ContextChunk{
			Text:       r.Content,
			Similarity: r.Similarity,
			SourceID:   r.ID,
		}
	}
	return chunks, nil
}

// Count reports the number of stored chunks. The context mirrors the
// pgvector backend; chromem answers from memory.
func (s *Store) Count(_ context.Context) int {
	return s.collection.Count()
}

// Reset drops and recreates the collection, for re-ingestion.
func (s *Store) Reset(_ context.Context) error {
	if err := s.db.DeleteCollection(s.collectionName); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return s.openCollection()
}
