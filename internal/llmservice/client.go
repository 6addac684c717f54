// Package llmservice wraps the configured text-generation provider behind a
// single Complete call. The provider is selected once at construction; the
// gateway never re-reads configuration.
package llmservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"schema-rag/internal/config"
	"schema-rag/internal/models"
)

// Options controls a single completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
	// JSON requests structured output; the response is validated as
	// parseable JSON before being returned.
	JSON bool
}

// Gateway is the LLM gateway. Safe for concurrent use.
type Gateway struct {
	llm        llms.Model
	timeout    time.Duration
	maxRetries int
}

// New builds the gateway for the provider named in cfg.
func New(ctx context.Context, cfg *config.LLMConfig) (*Gateway, error) {
	llm, err := newModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	return NewWithModel(llm, cfg), nil
}

// NewWithModel wraps an already-constructed model. Useful with fakes.
func NewWithModel(llm llms.Model, cfg *config.LLMConfig) *Gateway {
	return &Gateway{
		llm:        llm,
		timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
		maxRetries: cfg.MaxRetries,
	}
}

func newModel(ctx context.Context, cfg *config.LLMConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
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
			googleai.WithDefaultModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Complete runs one completion. Transport failures are retried up to the
// configured bound and surface as models.ErrProvider; content-shape failures
// (models.ErrMalformedOutput) are never retried, since repeating an
// identical prompt is unlikely to fix them.
func (g *Gateway) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSON {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	msgs := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().Err(lastErr).Int("attempt", attempt).Msg("Retrying completion")
		}
		content, err := g.generate(ctx, msgs, callOpts)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", models.ErrProvider, err)
			if ctx.Err() != nil {
				return "", lastErr
			}
			continue
		}
		if opts.JSON {
			cleaned := StripFences(content)
			if !json.Valid([]byte(cleaned)) {
				return "", fmt.Errorf("%w: response is not valid JSON", models.ErrMalformedOutput)
			}
			return cleaned, nil
		}
		return content, nil
	}
	return "", lastErr
}

func (g *Gateway) generate(ctx context.Context, msgs []llms.MessageContent, opts []llms.CallOption) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.llm.GenerateContent(callCtx, msgs, opts...)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}

// StripFences removes a surrounding markdown code fence, with or without a
// language tag, if the provider wrapped its output in one.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
