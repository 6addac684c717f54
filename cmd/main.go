package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"schema-rag/internal/chromemdb"
	"schema-rag/internal/classifier"
	"schema-rag/internal/config"
	"schema-rag/internal/db"
	"schema-rag/internal/embedding"
	"schema-rag/internal/ingest"
	"schema-rag/internal/llmservice"
	"schema-rag/internal/models"
	"schema-rag/internal/orchestrator"
	"schema-rag/internal/rag"
	"schema-rag/internal/server"
	"schema-rag/internal/summarizer"
)

// vectorStore is what both the chromem and pgvector backends provide.
type vectorStore interface {
	Add(ctx context.Context, docs []models.ChunkEmbedding) error
	Search(ctx context.Context, embedding []float32, k int) ([]models.ContextChunk, error)
	Count(ctx context.Context) int
	Reset(ctx context.Context) error
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	ingestPath := flag.String("ingest", "", "Path to a schema guide document to ingest, then exit")
	dryRun := flag.Bool("dry-run", false, "Parse the schema guide and print chunks without storing")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	if *dryRun {
		if *ingestPath == "" {
			log.Fatal().Msg("-dry-run requires -ingest <file>")
		}
		svc := ingest.NewService(nil, nil, &cfg.RAG)
		if err := svc.DryRun(*ingestPath); err != nil {
			log.Fatal().Err(err).Msg("Error parsing schema guide")
		}
		return
	}

	embedder, err := embedding.New(ctx, &cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	store, closeStore, err := openStore(ctx, &cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("Error closing vector store")
		}
	}()

	if *ingestPath != "" {
		svc := ingest.NewService(embedder, store, &cfg.RAG)
		n, err := svc.IngestFile(ctx, *ingestPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error ingesting schema guide")
		}
		log.Info().Int("chunks", n).Str("file", *ingestPath).Msg("Schema guide ingested")
		return
	}

	llm, err := llmservice.New(ctx, &cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM gateway")
	}

	ragSvc := rag.NewService(embedder, store, llm, &cfg.RAG)
	orch := orchestrator.NewService(
		classifier.NewService(llm),
		ragSvc,
		summarizer.NewService(llm),
		llm,
	)

	srv := server.NewServer(orch)
	log.Info().Str("addr", cfg.Addr()).Str("store", cfg.Store.Type).Msg("Starting server")
	if err := srv.Run(cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func openStore(ctx context.Context, cfg *config.StoreConfig) (vectorStore, func() error, error) {
	switch cfg.Type {
	case "pgvector":
		store, err := db.NewStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := chromemdb.NewStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	}
}
