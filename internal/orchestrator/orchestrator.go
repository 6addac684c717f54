// Package orchestrator is the single entry surface the request layer calls.
// It sequences classification, retrieval-backed SQL generation and
// summarization according to the two-phase propose/execute/resubmit
// protocol.
package orchestrator

import (
	"context"

	"github.com/rs/zerolog/log"

	"schema-rag/internal/llmservice"
	"schema-rag/internal/models"
	"schema-rag/internal/prompt"
)

// Classifier decides the action category for a question.
type Classifier interface {
	Classify(ctx context.Context, question string) (models.Classification, error)
}

// SQLGenerator produces a schema-grounded SQL statement for a question.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string) (string, error)
}

// Summarizer completes phase 2: answer or report from execution data.
type Summarizer interface {
	Summarize(ctx context.Context, question, sql string, data models.Rows) (string, error)
	GenerateReport(ctx context.Context, question, sql string, data models.Rows) (models.Report, error)
}

// Completer runs a text completion, used for plain chat answers.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llmservice.Options) (string, error)
}

const chatTemperature = 0.3

// Request is the facade input. Data, KnownAction and SQL are set on phase-2
// calls, when the caller resubmits a question together with the results of
// executing a previously proposed statement.
type Request struct {
	Question    string
	Data        models.Rows
	KnownAction models.ActionType
	SQL         string
}

// phase2 reports whether the request carries everything needed to skip
// classification: a known category, the original statement, and rows.
func (r Request) phase2() bool {
	return len(r.Data) > 0 && r.SQL != "" &&
		(r.KnownAction == models.ActionSQL || r.KnownAction == models.ActionReport)
}

type Service struct {
	classifier Classifier
	sqlgen     SQLGenerator
	summarizer Summarizer
	llm        Completer
}

func NewService(classifier Classifier, sqlgen SQLGenerator, summarizer Summarizer, llm Completer) *Service {
	return &Service{classifier: classifier, sqlgen: sqlgen, summarizer: summarizer, llm: llm}
}

// Handle processes one incoming question. Phase-2 requests route straight
// to summarization; classification is never re-invoked once the category is
// known, because re-classifying the same question with appended data could
// flip the category non-deterministically.
func (s *Service) Handle(ctx context.Context, req Request) (models.Classification, error) {
	if req.phase2() {
		return s.completePhase2(ctx, req)
	}

	c, err := s.Classify(ctx, req.Question)
	if err != nil {
		return models.Classification{}, err
	}

	switch c.Action {
	case models.ActionGeneralChat:
		return c, nil

	case models.ActionSQL:
		sql, err := s.sqlgen.GenerateSQL(ctx, c.OriginalQuery)
		if err != nil {
			return models.Classification{}, err
		}
		if len(req.Data) > 0 {
			answer, err := s.summarizer.Summarize(ctx, c.OriginalQuery, sql, req.Data)
			if err != nil {
				return models.Classification{}, err
			}
			c.ProposedSQL = sql
			c.ChatAnswer = answer
			return c, nil
		}
		c.ProposedSQL = sql
		c.ChatAnswer = models.SQLGuidance
		return c, nil

	case models.ActionReport:
		// The classifier's draft statement is replaced with one grounded
		// in retrieved schema context.
		sql, err := s.sqlgen.GenerateSQL(ctx, c.OriginalQuery)
		if err != nil {
			return models.Classification{}, err
		}
		c.ProposedSQL = sql
		if len(req.Data) > 0 {
			report, err := s.summarizer.GenerateReport(ctx, c.OriginalQuery, sql, req.Data)
			if err != nil {
				return models.Classification{}, err
			}
			c.ChatAnswer = report.ChatAnswer
			c.ReportHTML = report.ReportHTML
		}
		return c, nil
	}
	return c, nil
}

func (s *Service) completePhase2(ctx context.Context, req Request) (models.Classification, error) {
	switch req.KnownAction {
	case models.ActionReport:
		report, err := s.summarizer.GenerateReport(ctx, req.Question, req.SQL, req.Data)
		if err != nil {
			return models.Classification{}, err
		}
		return models.Classification{
			Action:        models.ActionReport,
			OriginalQuery: req.Question,
			ProposedSQL:   req.SQL,
			ChatAnswer:    report.ChatAnswer,
			ReportHTML:    report.ReportHTML,
		}, nil
	default: // models.ActionSQL
		answer, err := s.summarizer.Summarize(ctx, req.Question, req.SQL, req.Data)
		if err != nil {
			return models.Classification{}, err
		}
		return models.Classification{
			Action:        models.ActionSQL,
			OriginalQuery: req.Question,
			ProposedSQL:   req.SQL,
			ChatAnswer:    answer,
		}, nil
	}
}

// Classify exposes the classification stage result: exactly one variant,
// fields outside it untouched. A GENERAL_CHAT result with no answer is
// completed with a direct chat completion before it is returned.
func (s *Service) Classify(ctx context.Context, question string) (models.Classification, error) {
	c, err := s.classifier.Classify(ctx, question)
	if err != nil {
		return models.Classification{}, err
	}
	log.Debug().Str("action", string(c.Action)).Msg("Question classified")
	if c.Action == models.ActionGeneralChat && c.ChatAnswer == "" {
		answer, err := s.Chat(ctx, question)
		if err != nil {
			return models.Classification{}, err
		}
		c.ChatAnswer = answer
	}
	return c, nil
}

// GenerateSQL produces a schema-grounded SQL statement for the question.
func (s *Service) GenerateSQL(ctx context.Context, question string) (string, error) {
	return s.sqlgen.GenerateSQL(ctx, question)
}

// Summarize answers a question from caller-supplied execution data.
func (s *Service) Summarize(ctx context.Context, question string, data models.Rows) (string, error) {
	return s.summarizer.Summarize(ctx, question, "", data)
}

// GenerateReport builds the completed report output from execution data.
func (s *Service) GenerateReport(ctx context.Context, question, sql string, data models.Rows) (models.Report, error) {
	return s.summarizer.GenerateReport(ctx, question, sql, data)
}

// Chat answers a general question with no database grounding.
func (s *Service) Chat(ctx context.Context, question string) (string, error) {
	return s.llm.Complete(ctx, prompt.Chat(question), llmservice.Options{Temperature: chatTemperature})
}
