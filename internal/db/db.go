// Package db is the pgvector-backed vector store, for deployments that keep
// schema hints in Postgres instead of the embedded chromem store.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"schema-rag/internal/config"
	"schema-rag/internal/models"
)

// SchemaChunk is one stored schema-hint row.
type SchemaChunk struct {
	bun.BaseModel `bun:"table:schema_chunks,alias:sc"`

	ID             int64     `bun:"id,pk,autoincrement"`
	DocID          string    `bun:"doc_id,notnull"`
	Content        string    `bun:"content,notnull"`
	Embedding      []float32 `bun:"embedding,notnull,type:vector(768)"`
	SourceFilename string    `bun:"source_filename"`
	PageNumber     int       `bun:"page_number"`
	ChunkID        int       `bun:"chunk_id"`
}

// Store implements the vector store capability on Postgres + pgvector.
type Store struct {
	db *bun.DB
}

// NewStore connects and ensures the schema_chunks table exists.
func NewStore(ctx context.Context, cfg *config.StoreConfig) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*SchemaChunk)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Add stores chunks with their precomputed embeddings.
func (s *Store) Add(ctx context.Context, docs []models.ChunkEmbedding) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]SchemaChunk, len(docs))
	for i, d := range docs {
		rows[i] = SchemaChunk{
			DocID:          d.ID,
			Content:        d.Content,
			Embedding:      d.Embedding,
			SourceFilename: d.SourceFilename,
			PageNumber:     d.PageNumber,
			ChunkID:        d.ChunkID,
		}
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Search returns up to k chunks ordered by descending cosine similarity.
// An empty table yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]models.ContextChunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: result count must be positive, got %d", models.ErrConfiguration, k)
	}

	var rows []struct {
		DocID      string  `bun:"doc_id"`
		Content    string  `bun:"content"`
		Similarity float32 `bun:"similarity"`
	}
	err := s.db.NewSelect().
		Model((*SchemaChunk)(nil)).
		Column("doc_id", "content").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", embedding).
		OrderExpr("embedding <=> ?", embedding).
		Limit(k).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	chunks := make([]models.ContextChunk, len(rows))
	for i, r := range rows {
		chunks[i] = models.ContextChunk{
			Text:       r.Content,
			Similarity: r.Similarity,
			SourceID:   r.DocID,
		}
	}
	return chunks, nil
}

// Count reports the number of stored chunks.
func (s *Store) Count(ctx context.Context) int {
	n, err := s.db.NewSelect().Model((*SchemaChunk)(nil)).Count(ctx)
	if err != nil {
		return 0
	}
	return n
}

// Reset drops and recreates the table, for re-ingestion.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.NewDropTable().Model((*SchemaChunk)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return s.init(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
