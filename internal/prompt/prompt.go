// Package prompt assembles provider prompts. Every function here is pure:
// no network, no store access, deterministic for identical inputs.
package prompt

import (
	"fmt"
	"strings"

	"schema-rag/internal/models"
)

const classificationTemplate = `Analyze the user's question and decide which action it requires. Respond with JSON only, no other text.

User question: %s

Decision rules:
1. "SQL": the question asks to look up, count, compare or analyze database data (orders, deliveries, items, vendors, status) WITHOUT an explicit request to produce a document, report or chart. Requests like "analyze", "compare", "show the trend" still belong here.
2. "REPORT": the question explicitly asks to produce a report, chart, document or HTML output ("make a report", "create a chart", "put it in a document"). Draft a candidate SQL statement for the data the report needs and put it in "sql".
3. "GENERAL_CHAT": the question is unrelated to the database (weather, programming, general knowledge). Answer it directly in "chat_answer", in the language the question was asked in.

Respond with exactly this JSON shape and nothing else:
{
    "action_type": "SQL" | "REPORT" | "GENERAL_CHAT",
    "query": "<the original question, for SQL or REPORT>",
    "sql": "<candidate SQL statement, REPORT only>",
    "chat_answer": "<answer text, GENERAL_CHAT only>"
}`

const sqlTemplate = `You are a %s expert. Generate a SQL query using ONLY the schema information provided below.

=== DATABASE SCHEMA (use nothing outside this) ===
%s
==================================================

User question: %s

Rules:
1. Use only table and column names that appear in the schema above. Never invent names.
2. Use %s syntax.
3. Do not use WITH clauses (CTEs); use subqueries or JOINs instead.
4. Date fields are stored as YYYYMMDD strings. When the question omits the year, use the current year.
5. Use COUNT(*) unless the question explicitly asks for distinct values.
6. Return only a single SQL statement. No explanation, no comments, no markdown code fences.

SQL query:`

const summarizationTemplate = `Write a clear, natural answer to the question below, grounded strictly in the data provided. Answer in the language the question was asked in.

Question: %s
%s
Data:
%s

Rules:
1. Base every number and fact on the data above. If the data does not contain the answer, say so instead of inventing a value.
2. Keep it concise; skip anything not needed to answer.
3. Emphasize key numbers with markdown bold (**like this**).

Answer:`

const reportTemplate = `Write an analysis report for the question below, grounded strictly in the data provided. Answer in the language the question was asked in.

Question: %s
%s
Data:
%s

Respond with exactly this JSON shape and nothing else:
{
  "summary": "<natural-language summary, markdown allowed>",
  "html_report": "<a complete HTML document starting with <!DOCTYPE html>>"
}

HTML rules:
- Full document structure (<html>, <head>, <body>) with inline CSS in the head.
- Include at least one table summarizing the data.
- Simple CSS-only bar charts are welcome; no external libraries, no scripts.
- Every figure must come from the data above; never fabricate numbers.`

const chatTemplate = `Answer the question below clearly and accurately, in the language it was asked in. If you do not know, say so honestly.

Question: %s

Answer:`

// Classification builds the fixed-taxonomy classification prompt.
func Classification(question string) string {
	return fmt.Sprintf(classificationTemplate, question)
}

// SQL builds the SQL-generation prompt from the question and the ranked
// context chunks, most similar first.
func SQL(question string, context []models.ContextChunk, dialect string) string {
	return fmt.Sprintf(sqlTemplate, dialect, ContextBlock(context), question, dialect)
}

// Summarization builds the data-grounded answer prompt. sql may be empty
// when no statement preceded the data.
func Summarization(question, sql, data string) string {
	return fmt.Sprintf(summarizationTemplate, question, sqlSection(sql), dataSection(data))
}

// Report builds the JSON-shaped report prompt.
func Report(question, sql, data string) string {
	return fmt.Sprintf(reportTemplate, question, sqlSection(sql), dataSection(data))
}

// Chat builds the plain general-question prompt.
func Chat(question string) string {
	return fmt.Sprintf(chatTemplate, question)
}

// ContextBlock joins retrieved chunks verbatim, separated by blank lines,
// preserving their ranked order.
func ContextBlock(context []models.ContextChunk) string {
	if len(context) == 0 {
		return "No schema information was found."
	}
	parts := make([]string, len(context))
	for i, c := range context {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n\n")
}

func sqlSection(sql string) string {
	if sql == "" {
		return ""
	}
	return fmt.Sprintf("\nSQL that produced the data:\n%s\n", sql)
}

func dataSection(data string) string {
	if strings.TrimSpace(data) == "" {
		return "(no data)"
	}
	return data
}
