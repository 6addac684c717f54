// Package summarizer turns a question plus caller-supplied execution data
// into a natural-language answer, or an HTML report for the REPORT
// category. Empty data never produces an invented answer.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"schema-rag/internal/llmservice"
	"schema-rag/internal/models"
	"schema-rag/internal/prompt"
)

// Completer runs a text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llmservice.Options) (string, error)
}

const summaryTemperature = 0.3

type Service struct {
	llm Completer
}

func NewService(llm Completer) *Service {
	return &Service{llm: llm}
}

// Summarize answers the question grounded strictly in data. With no rows it
// returns the fixed guidance string without calling the model; this is a
// hard rule, not a heuristic, so numbers are never fabricated.
func (s *Service) Summarize(ctx context.Context, question, sql string, data models.Rows) (string, error) {
	if len(data) == 0 {
		return models.EmptyDataGuidance, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: encoding data: %v", models.ErrSummarization, err)
	}

	answer, err := s.llm.Complete(ctx, prompt.Summarization(question, sql, string(encoded)), llmservice.Options{
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrSummarization, err)
	}
	return normalizeMarkdown(answer), nil
}

// reportPayload is the JSON shape requested from the model in report mode.
type reportPayload struct {
	Summary    string `json:"summary"`
	HTMLReport string `json:"html_report"`
}

// GenerateReport produces the completed REPORT output: a narrative answer
// plus a complete HTML document. When the model omits the HTML, the
// narrative is wrapped in a minimal fallback template.
func (s *Service) GenerateReport(ctx context.Context, question, sql string, data models.Rows) (models.Report, error) {
	if len(data) == 0 {
		return models.Report{ChatAnswer: models.EmptyDataGuidance}, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return models.Report{}, fmt.Errorf("%w: encoding data: %v", models.ErrSummarization, err)
	}

	raw, err := s.llm.Complete(ctx, prompt.Report(question, sql, string(encoded)), llmservice.Options{
		Temperature: summaryTemperature,
		JSON:        true,
	})
	if err != nil {
		return models.Report{}, fmt.Errorf("%w: %w", models.ErrSummarization, err)
	}

	var payload reportPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return models.Report{}, fmt.Errorf("%w: %w: report payload: %v", models.ErrSummarization, models.ErrMalformedOutput, err)
	}

	summary := normalizeMarkdown(strings.TrimSpace(payload.Summary))
	html := payload.HTMLReport
	if html == "" {
		log.Debug().Msg("Report response carried no html, using fallback template")
		html = BuildBasicHTML(summary)
	} else {
		html = normalizeBold(html)
	}
	return models.Report{ChatAnswer: summary, ReportHTML: html}, nil
}

var boldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

func normalizeBold(text string) string {
	return boldRe.ReplaceAllString(text, "<strong>$1</strong>")
}

// normalizeMarkdown converts markdown bold emphasis to <strong> tags and,
// for non-HTML answers, newlines to <br>, matching what the consuming
// backend renders.
func normalizeMarkdown(text string) string {
	if text == "" {
		return text
	}
	text = normalizeBold(text)
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "<html") && !strings.Contains(lower, "<div") {
		text = strings.ReplaceAll(text, "\n", "<br>")
	}
	return text
}

// BuildBasicHTML wraps a narrative summary in a minimal standalone HTML
// document, used when the provider returns no report of its own.
func BuildBasicHTML(summary string) string {
	safe := strings.ReplaceAll(summary, "\n", "<br>")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <title>Analysis Report</title>
  <style>
    body { font-family: sans-serif; margin: 0; padding: 32px; background: #f4f6fb; color: #1f2a44; line-height: 1.6; }
    .card { background: #ffffff; border-radius: 16px; padding: 32px; max-width: 960px; margin: 0 auto; }
    h1 { font-size: 2rem; margin-bottom: 1rem; }
  </style>
</head>
<body>
  <main class="card">
    <h1>Analysis Report</h1>
    <p>%s</p>
  </main>
</body>
</html>`, safe)
}
