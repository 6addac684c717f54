// Package server is the thin HTTP shell over the orchestration facade:
// route registration, request-field normalization and status mapping only.
// All decision logic lives behind the Service interface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"schema-rag/internal/models"
	"schema-rag/internal/orchestrator"
)

// Service is the orchestration surface the shell exposes.
type Service interface {
	Handle(ctx context.Context, req orchestrator.Request) (models.Classification, error)
	GenerateSQL(ctx context.Context, question string) (string, error)
	Summarize(ctx context.Context, question string, data models.Rows) (string, error)
	GenerateReport(ctx context.Context, question, sql string, data models.Rows) (models.Report, error)
	Chat(ctx context.Context, question string) (string, error)
}

type Server struct {
	engine *gin.Engine
	svc    Service
}

func NewServer(svc Service) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), cors.Default(), requestLogger())

	s := &Server{engine: engine, svc: svc}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.root)
	s.engine.GET("/health", s.health)
	s.engine.POST("/classify-query", s.classifyQuery)
	s.engine.POST("/generate-sql", s.generateSQL)
	s.engine.POST("/summarize", s.summarize)
	s.engine.POST("/chat", s.chat)
	s.engine.POST("/generate-report", s.generateReport)
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Handler exposes the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("Request handled")
	}
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "schema-rag",
		"status":  "running",
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// classifyRequest accepts the question under three field aliases for
// backend compatibility, priority question > query > message. data carries
// phase-2 execution results, action_type and sql the known category and
// statement from phase 1.
type classifyRequest struct {
	Question   string          `json:"question"`
	Query      string          `json:"query"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	ActionType string          `json:"action_type"`
	SQL        string          `json:"sql"`
}

func (r classifyRequest) question() string {
	for _, q := range []string{r.Question, r.Query, r.Message} {
		if q != "" {
			return q
		}
	}
	return ""
}

func (s *Server) classifyQuery(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	question := req.question()
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "one of question, query or message is required"})
		return
	}
	rows, err := decodeRows(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid data field: %v", err)})
		return
	}

	result, err := s.svc.Handle(c.Request.Context(), orchestrator.Request{
		Question:    question,
		Data:        rows,
		KnownAction: models.ActionType(req.ActionType),
		SQL:         req.SQL,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type generateSQLRequest struct {
	Query string `json:"query" binding:"required"`
}

func (s *Server) generateSQL(c *gin.Context) {
	var req generateSQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	sql, err := s.svc.GenerateSQL(c.Request.Context(), req.Query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sql": sql})
}

type summarizeRequest struct {
	Query string          `json:"query" binding:"required"`
	Data  json.RawMessage `json:"data"`
}

func (s *Server) summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	rows, err := decodeRows(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid data field: %v", err)})
		return
	}
	answer, err := s.svc.Summarize(c.Request.Context(), req.Query, rows)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

type chatRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	answer, err := s.svc.Chat(c.Request.Context(), req.Question)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

type reportRequest struct {
	Query string          `json:"query" binding:"required"`
	SQL   string          `json:"sql"`
	Data  json.RawMessage `json:"data"`
}

func (s *Server) generateReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	rows, err := decodeRows(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid data field: %v", err)})
		return
	}
	report, err := s.svc.GenerateReport(c.Request.Context(), req.Query, req.SQL, rows)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":      report.ChatAnswer,
		"report_html": report.ReportHTML,
	})
}

// decodeRows accepts either a JSON array of row objects or a JSON string
// wrapping one (the shape older backends send) and normalizes to Rows.
func decodeRows(raw json.RawMessage) (models.Rows, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rows models.Rows
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}
	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, errors.New("data must be an array of objects or a JSON-encoded string of one")
	}
	if wrapped == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(wrapped), &rows); err != nil {
		var single map[string]any
		if err := json.Unmarshal([]byte(wrapped), &single); err != nil {
			return nil, fmt.Errorf("data string is not valid JSON rows: %v", err)
		}
		rows = models.Rows{single}
	}
	return rows, nil
}

// abortWithError maps the failure taxonomy onto status codes: content-shape
// problems are the caller's to fix (422), upstream availability problems
// are gateway failures (502), anything else is a server error.
func abortWithError(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	switch {
	case errors.Is(err, models.ErrClassification),
		errors.Is(err, models.ErrSQLExtraction),
		errors.Is(err, models.ErrMalformedOutput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
	case errors.Is(err, models.ErrProvider),
		errors.Is(err, models.ErrStoreUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
