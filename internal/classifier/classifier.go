// Package classifier decides the action category for a question: SQL,
// REPORT or GENERAL_CHAT. Each call is stateless and idempotent for the
// same question under low-temperature configuration.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"schema-rag/internal/llmservice"
	"schema-rag/internal/models"
	"schema-rag/internal/prompt"
)

// Completer runs a text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llmservice.Options) (string, error)
}

const classifyTemperature = 0.1

type Service struct {
	llm Completer
}

func NewService(llm Completer) *Service {
	return &Service{llm: llm}
}

// parsedClassification is the loose JSON shape the model returns. It is
// mapped onto the tagged variant immediately; nothing downstream sees it.
type parsedClassification struct {
	ActionType string `json:"action_type"`
	Query      string `json:"query"`
	SQL        string `json:"sql"`
	ChatAnswer string `json:"chat_answer"`
}

// Classify runs the classification prompt in JSON mode and maps the result
// onto exactly one Classification variant. Unknown categories and a REPORT
// response without sql fail with models.ErrClassification — distinct from
// gateway transport or JSON-validity failures, which bubble up unchanged.
func (s *Service) Classify(ctx context.Context, question string) (models.Classification, error) {
	raw, err := s.llm.Complete(ctx, prompt.Classification(question), llmservice.Options{
		Temperature: classifyTemperature,
		JSON:        true,
	})
	if err != nil {
		return models.Classification{}, err
	}

	var parsed parsedClassification
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.Classification{}, fmt.Errorf("%w: %v", models.ErrClassification, err)
	}

	query := parsed.Query
	if query == "" {
		query = question
	}

	switch models.ActionType(parsed.ActionType) {
	case models.ActionSQL:
		return models.NewSQLClassification(query), nil
	case models.ActionReport:
		if parsed.SQL == "" {
			return models.Classification{}, fmt.Errorf("%w: REPORT response carries no sql", models.ErrClassification)
		}
		return models.NewReportClassification(query, parsed.SQL, models.ReportGuidance), nil
	case models.ActionGeneralChat:
		// An empty chat_answer is tolerated here; the facade fills it
		// with a direct chat completion before returning to the caller.
		return models.NewGeneralChat(parsed.ChatAnswer), nil
	default:
		log.Warn().Str("action_type", parsed.ActionType).Msg("Unknown classification category")
		return models.Classification{}, fmt.Errorf("%w: unknown action_type %q", models.ErrClassification, parsed.ActionType)
	}
}
