package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"schema-rag/internal/models"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig selects and configures the completion provider. Key may carry
// the credential directly or key_env may name an environment variable
// holding it.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, ollama, googleai
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	KeyEnv      string  `yaml:"key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
}

type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url"`
	Key         string `yaml:"key"`
	KeyEnv      string `yaml:"key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// StoreConfig selects the vector store backend: chromem (embedded,
// persistent) or pgvector (Postgres via bun).
type StoreConfig struct {
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	Debug      bool   `yaml:"debug"`
}

type RAGConfig struct {
	TopK         int    `yaml:"top_k"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	SQLDialect   string `yaml:"sql_dialect"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	RAG       RAGConfig       `yaml:"rag"`
}

const (
	defaultTopK         = 3
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTimeoutSecs  = 60
	defaultDialect      = "T-SQL"
)

// LoadConfig reads and validates the YAML config at path. Defaults are set
// before unmarshalling, so only keys present in the file override them and
// an explicit zero (max_retries: 0, chunk_overlap: 0) stays zero.
// Validation failures wrap models.ErrConfiguration and are fatal at
// startup.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = cfg.LLM.Provider
	}
	resolveKey(&cfg.LLM.Key, cfg.LLM.KeyEnv)
	resolveKey(&cfg.Embedding.Key, cfg.Embedding.KeyEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8001},
		LLM: LLMConfig{
			Provider:    "googleai",
			Temperature: 0.1,
			TimeoutSecs: defaultTimeoutSecs,
			MaxRetries:  1,
		},
		Embedding: EmbeddingConfig{TimeoutSecs: defaultTimeoutSecs},
		Store: StoreConfig{
			Type:       "chromem",
			Path:       "./chromemdb",
			Collection: "schema_guide",
		},
		RAG: RAGConfig{
			TopK:         defaultTopK,
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
			SQLDialect:   defaultDialect,
		},
	}
}

func resolveKey(key *string, env string) {
	if *key == "" && env != "" {
		*key = os.Getenv(env)
	}
}

// Validate enforces startup invariants: positive K, known providers and
// store backend, credentials where the provider needs them.
func (cfg *Config) Validate() error {
	if cfg.RAG.TopK < 1 {
		return fmt.Errorf("%w: rag.top_k must be a positive integer, got %d", models.ErrConfiguration, cfg.RAG.TopK)
	}
	if cfg.RAG.ChunkSize < 1 || cfg.RAG.ChunkOverlap < 0 || cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return fmt.Errorf("%w: rag.chunk_overlap must be in [0, chunk_size)", models.ErrConfiguration)
	}
	if cfg.LLM.TimeoutSecs < 1 || cfg.Embedding.TimeoutSecs < 1 {
		return fmt.Errorf("%w: timeout_secs must be a positive integer", models.ErrConfiguration)
	}
	if cfg.LLM.MaxRetries < 0 {
		return fmt.Errorf("%w: llm.max_retries must not be negative", models.ErrConfiguration)
	}
	switch cfg.LLM.Provider {
	case "openai", "googleai":
		if cfg.LLM.Key == "" {
			return fmt.Errorf("%w: llm provider %q requires a key", models.ErrConfiguration, cfg.LLM.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("%w: unknown llm provider %q", models.ErrConfiguration, cfg.LLM.Provider)
	}
	switch cfg.Embedding.Provider {
	case "openai", "googleai":
		if cfg.Embedding.Key == "" {
			return fmt.Errorf("%w: embedding provider %q requires a key", models.ErrConfiguration, cfg.Embedding.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfiguration, cfg.Embedding.Provider)
	}
	switch cfg.Store.Type {
	case "chromem":
	case "pgvector":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("%w: store type pgvector requires a dsn", models.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown store type %q", models.ErrConfiguration, cfg.Store.Type)
	}
	return nil
}

// LLMTimeout returns the per-call completion timeout.
func (cfg *Config) LLMTimeout() time.Duration {
	return time.Duration(cfg.LLM.TimeoutSecs) * time.Second
}

// EmbeddingTimeout returns the per-call embedding timeout.
func (cfg *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(cfg.Embedding.TimeoutSecs) * time.Second
}

// Addr is the listen address for the HTTP shell.
func (cfg *Config) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
}
