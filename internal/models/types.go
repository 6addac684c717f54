package models

// ActionType is the category assigned to an incoming question.
type ActionType string

const (
	ActionSQL         ActionType = "SQL"
	ActionReport      ActionType = "REPORT"
	ActionGeneralChat ActionType = "GENERAL_CHAT"
)

// Known reports whether t is one of the three recognized categories.
func (t ActionType) Known() bool {
	switch t {
	case ActionSQL, ActionReport, ActionGeneralChat:
		return true
	}
	return false
}

// ContextChunk is one schema-hint fragment retrieved from the vector store.
type ContextChunk struct {
	Text       string
	Similarity float32
	SourceID   string
}

// Classification is the tagged result of classifying a question. Exactly one
// variant is active per value; fields outside the active variant stay empty.
// Use the constructors below instead of filling the struct by hand.
type Classification struct {
	Action        ActionType `json:"action_type"`
	OriginalQuery string     `json:"query,omitempty"`
	ProposedSQL   string     `json:"sql,omitempty"`
	ChatAnswer    string     `json:"chat_answer,omitempty"`
	ReportHTML    string     `json:"report_html,omitempty"`
}

// NewSQLClassification builds the SQL variant.
func NewSQLClassification(question string) Classification {
	return Classification{Action: ActionSQL, OriginalQuery: question}
}

// NewReportClassification builds the phase-1 REPORT variant: a proposed SQL
// statement plus guidance telling the caller to execute it and resubmit.
func NewReportClassification(question, sql, guidance string) Classification {
	return Classification{
		Action:        ActionReport,
		OriginalQuery: question,
		ProposedSQL:   sql,
		ChatAnswer:    guidance,
	}
}

// NewGeneralChat builds the GENERAL_CHAT variant.
func NewGeneralChat(answer string) Classification {
	return Classification{Action: ActionGeneralChat, ChatAnswer: answer}
}

// Guidance strings returned on phase 1, when a proposed SQL statement
// exists but no execution data has been supplied yet. They instruct the
// caller to run the SQL and resubmit with results instead of the service
// inventing an answer.
const (
	SQLGuidance = "SQL generated. Execute the statement below, then resend " +
		"the question with the results as JSON in the 'data' field to receive a summary."
	ReportGuidance = "To build the report, execute the SQL below first, then " +
		"resend the question with the results as JSON in the 'data' field."
	EmptyDataGuidance = "No execution results were supplied. Execute the SQL " +
		"and resend the question together with the resulting data."
)

// Rows is caller-supplied SQL execution output, opaque beyond being
// JSON-shaped records.
type Rows []map[string]any

// Report is the completed phase-2 output for the REPORT category.
type Report struct {
	ChatAnswer string `json:"chat_answer"`
	ReportHTML string `json:"report_html"`
}

// Chunk is a parsed fragment of a schema-guide document, pre-embedding.
type Chunk struct {
	Content    string
	PageNumber int
	ChunkID    int
}

// ChunkEmbedding is a chunk ready for storage: content, vector and source
// metadata.
type ChunkEmbedding struct {
	ID             string
	Content        string
	Embedding      []float32
	SourceFilename string
	PageNumber     int
	ChunkID        int
}
