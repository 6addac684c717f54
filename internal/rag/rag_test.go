package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"schema-rag/internal/config"
	"schema-rag/internal/llmservice"
	"schema-rag/internal/models"
)

type fakeEmbedder struct {
	embedding []float32
	err       error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.embedding, f.err
}

type fakeSearcher struct {
	chunks []models.ContextChunk
	gotK   int
	err    error
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, k int) ([]models.ContextChunk, error) {
	f.gotK = k
	return f.chunks, f.err
}

type fakeCompleter struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ llmservice.Options) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func ragConfig() *config.RAGConfig {
	return &config.RAGConfig{TopK: 3, ChunkSize: 1000, ChunkOverlap: 200, SQLDialect: "T-SQL"}
}

func TestGenerateSQLGroundedInSchema(t *testing.T) {
	store := &fakeSearcher{chunks: []models.ContextChunk{
		{Text: "## Orders\n- OrderID\n- Status: 1=open, 9=cancelled\n- OrderDate: YYYYMMDD", Similarity: 0.9},
	}}
	llm := &fakeCompleter{response: "```sql\nSELECT COUNT(*) FROM Orders WHERE Status = 9\n```"}
	svc := NewService(&fakeEmbedder{embedding: []float32{1, 0}}, store, llm, ragConfig())

	sql, err := svc.GenerateSQL(context.Background(), "지난주 취소된 주문은 몇 건인가요?")
	if err != nil {
		t.Fatalf("GenerateSQL: %v", err)
	}
	if sql != "SELECT COUNT(*) FROM Orders WHERE Status = 9" {
		t.Errorf("sql = %q, want fences stripped", sql)
	}
	if store.gotK != 3 {
		t.Errorf("search k = %d, want configured top_k", store.gotK)
	}
	if !strings.Contains(llm.lastPrompt, "## Orders") {
		t.Error("prompt does not carry the retrieved schema chunk")
	}
	if !strings.Contains(llm.lastPrompt, "지난주 취소된 주문은 몇 건인가요?") {
		t.Error("prompt does not carry the question")
	}
}

func TestGenerateSQLRejectsProse(t *testing.T) {
	llm := &fakeCompleter{response: "죄송하지만 해당 질문에는 답할 수 없습니다."}
	svc := NewService(&fakeEmbedder{embedding: []float32{1}}, &fakeSearcher{}, llm, ragConfig())

	_, err := svc.GenerateSQL(context.Background(), "q")
	if !errors.Is(err, models.ErrSQLExtraction) {
		t.Errorf("error = %v, want ErrSQLExtraction", err)
	}
}

func TestGenerateSQLEmptyStore(t *testing.T) {
	llm := &fakeCompleter{response: "SELECT 1"}
	svc := NewService(&fakeEmbedder{embedding: []float32{1}}, &fakeSearcher{}, llm, ragConfig())

	if _, err := svc.GenerateSQL(context.Background(), "q"); err != nil {
		t.Fatalf("GenerateSQL with empty store: %v", err)
	}
	if !strings.Contains(llm.lastPrompt, "No schema information was found.") {
		t.Error("empty retrieval should be stated in the prompt")
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	boom := errors.New("provider down")
	svc := NewService(&fakeEmbedder{err: boom}, &fakeSearcher{}, &fakeCompleter{}, ragConfig())

	if _, err := svc.Retrieve(context.Background(), "q"); !errors.Is(err, boom) {
		t.Errorf("error = %v, want the embedder failure", err)
	}
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare statement", "SELECT * FROM Orders", "SELECT * FROM Orders", false},
		{"fenced", "```sql\nSELECT 1\n```", "SELECT 1", false},
		{"lowercase keyword", "select count(*) from Orders", "select count(*) from Orders", false},
		{"exec statement", "EXEC sp_order_stats", "EXEC sp_order_stats", false},
		{"empty", "", "", true},
		{"fence only", "```\n```", "", true},
		{"prose", "I cannot answer that question.", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSQL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, models.ErrSQLExtraction) {
					t.Errorf("error = %v, want ErrSQLExtraction", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractSQL: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractSQL = %q, want %q", got, tt.want)
			}
		})
	}
}
