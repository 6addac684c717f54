package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"schema-rag/internal/llmservice"
	"schema-rag/internal/models"
)

type fakeCompleter struct {
	response   string
	err        error
	calls      int
	lastPrompt string
	gotJSON    bool
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, opts llmservice.Options) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.gotJSON = opts.JSON
	return f.response, f.err
}

func TestSummarizeEmptyDataSkipsModel(t *testing.T) {
	llm := &fakeCompleter{}
	svc := NewService(llm)

	answer, err := svc.Summarize(context.Background(), "취소 건수는?", "SELECT 1", nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if answer != models.EmptyDataGuidance {
		t.Errorf("answer = %q, want the empty-data guidance", answer)
	}
	if llm.calls != 0 {
		t.Errorf("model called %d times, empty data must not reach the model", llm.calls)
	}
}

func TestSummarizeGroundedAnswer(t *testing.T) {
	llm := &fakeCompleter{response: "지난주 취소된 주문은 **5**건입니다."}
	svc := NewService(llm)
	data := models.Rows{{"CancelledOrdersCount": 5}}

	answer, err := svc.Summarize(context.Background(), "지난주 취소된 주문은 몇 건인가요?", "SELECT COUNT(*) FROM Orders WHERE Status = 9", data)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(answer, "<strong>5</strong>") {
		t.Errorf("answer = %q, want markdown bold converted to strong tags", answer)
	}
	if !strings.Contains(llm.lastPrompt, "CancelledOrdersCount") {
		t.Error("prompt does not carry the execution data")
	}
	if !strings.Contains(llm.lastPrompt, "SELECT COUNT(*)") {
		t.Error("prompt does not carry the originating SQL")
	}
}

func TestSummarizeNewlinesBecomeBreaks(t *testing.T) {
	llm := &fakeCompleter{response: "첫 줄입니다.\n둘째 줄입니다."}
	svc := NewService(llm)

	answer, err := svc.Summarize(context.Background(), "q", "", models.Rows{{"n": 1}})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(answer, "<br>") {
		t.Errorf("answer = %q, want newlines converted for rendering", answer)
	}
}

func TestSummarizeProviderFailure(t *testing.T) {
	llm := &fakeCompleter{err: models.ErrProvider}
	svc := NewService(llm)

	_, err := svc.Summarize(context.Background(), "q", "", models.Rows{{"n": 1}})
	if !errors.Is(err, models.ErrSummarization) {
		t.Errorf("error = %v, want ErrSummarization", err)
	}
	if !errors.Is(err, models.ErrProvider) {
		t.Errorf("error = %v, should still carry the provider cause", err)
	}
}

func TestGenerateReport(t *testing.T) {
	llm := &fakeCompleter{response: `{"summary": "발주는 총 **12**건입니다.", "html_report": "<!DOCTYPE html>\n<html><body><div>**12** orders</div></body></html>"}`}
	svc := NewService(llm)
	data := models.Rows{{"VendorID": "V001", "OrderCount": 12}}

	report, err := svc.GenerateReport(context.Background(), "발주 현황 보고서", "SELECT VendorID, COUNT(*) FROM Orders GROUP BY VendorID", data)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if !llm.gotJSON {
		t.Error("report generation must run in JSON mode")
	}
	if !strings.Contains(report.ChatAnswer, "<strong>12</strong>") {
		t.Errorf("summary = %q, want bold normalized", report.ChatAnswer)
	}
	if !strings.Contains(report.ReportHTML, "<strong>12</strong>") {
		t.Errorf("html = %q, want bold normalized inside the document", report.ReportHTML)
	}
	if !strings.HasPrefix(report.ReportHTML, "<!DOCTYPE html>") {
		t.Error("report html must stay a complete document")
	}
}

func TestGenerateReportFallbackHTML(t *testing.T) {
	llm := &fakeCompleter{response: `{"summary": "요약입니다."}`}
	svc := NewService(llm)

	report, err := svc.GenerateReport(context.Background(), "q", "", models.Rows{{"n": 1}})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if !strings.Contains(report.ReportHTML, "<!DOCTYPE html>") {
		t.Error("missing html must be replaced by the fallback document")
	}
	if !strings.Contains(report.ReportHTML, "요약입니다.") {
		t.Error("fallback document does not embed the summary")
	}
}

func TestGenerateReportEmptyData(t *testing.T) {
	llm := &fakeCompleter{}
	svc := NewService(llm)

	report, err := svc.GenerateReport(context.Background(), "q", "SELECT 1", nil)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if report.ChatAnswer != models.EmptyDataGuidance {
		t.Errorf("answer = %q, want the empty-data guidance", report.ChatAnswer)
	}
	if report.ReportHTML != "" {
		t.Error("no report should be built without data")
	}
	if llm.calls != 0 {
		t.Error("empty data must not reach the model")
	}
}

func TestGenerateReportMalformedPayload(t *testing.T) {
	llm := &fakeCompleter{response: `["wrong shape"]`}
	svc := NewService(llm)

	_, err := svc.GenerateReport(context.Background(), "q", "", models.Rows{{"n": 1}})
	if !errors.Is(err, models.ErrSummarization) || !errors.Is(err, models.ErrMalformedOutput) {
		t.Errorf("error = %v, want both summarization and malformed-output marks", err)
	}
}

func TestBuildBasicHTML(t *testing.T) {
	html := BuildBasicHTML("line one\nline two")
	if !strings.Contains(html, "line one<br>line two") {
		t.Error("fallback document does not convert newlines")
	}
	if !strings.Contains(html, "<title>Analysis Report</title>") {
		t.Error("fallback document has no title")
	}
}
