package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"schema-rag/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseTextSmallFile(t *testing.T) {
	path := writeFile(t, "guide.txt", "Orders table holds order headers.")
	chunks, err := ParseSchemaGuide(path, nil)
	if err != nil {
		t.Fatalf("ParseSchemaGuide: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "Orders table holds order headers." {
		t.Errorf("chunk content = %q", chunks[0].Content)
	}
	if chunks[0].ChunkID != 1 || chunks[0].PageNumber != 1 {
		t.Errorf("chunk id/page = %d/%d, want 1/1", chunks[0].ChunkID, chunks[0].PageNumber)
	}
}

func TestParseTextChunksWithOverlap(t *testing.T) {
	content := strings.Repeat("order status vendor delivery ", 20) // ~580 chars
	path := writeFile(t, "guide.txt", content)
	cfg := &config.RAGConfig{ChunkSize: 200, ChunkOverlap: 50}

	chunks, err := ParseSchemaGuide(path, cfg)
	if err != nil {
		t.Fatalf("ParseSchemaGuide: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want several for %d chars", len(chunks), len(content))
	}
	for i, c := range chunks {
		if len(c.Content) > 200 {
			t.Errorf("chunk %d has %d chars, exceeds configured size", i, len(c.Content))
		}
	}
	// overlap means the tail of one chunk reappears at the head of the next
	tail := chunks[0].Content[len(chunks[0].Content)-20:]
	if !strings.Contains(chunks[1].Content, strings.TrimSpace(tail)) {
		t.Error("consecutive chunks do not overlap")
	}
}

func TestParseMarkdownSplitsOnHeadings(t *testing.T) {
	guide := `# Schema Guide

Intro text.

## Orders
- OrderID: primary key
- Status: 1=open, 9=cancelled

## Vendors
- VendorID: primary key
`
	path := writeFile(t, "guide.md", guide)
	chunks, err := ParseSchemaGuide(path, &config.RAGConfig{ChunkSize: 500, ChunkOverlap: 50})
	if err != nil {
		t.Fatalf("ParseSchemaGuide: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want one per heading section", len(chunks))
	}
	if !strings.HasPrefix(chunks[1].Content, "## Orders") {
		t.Errorf("second chunk = %q, want the Orders section", chunks[1].Content)
	}
	if !strings.Contains(chunks[1].Content, "9=cancelled") {
		t.Error("section body was separated from its heading")
	}
	if chunks[2].ChunkID != 3 {
		t.Errorf("chunk ids are not sequential: %d", chunks[2].ChunkID)
	}
}

func TestParseMarkdownNoHeadings(t *testing.T) {
	path := writeFile(t, "guide.md", "plain text without any headings")
	chunks, err := ParseSchemaGuide(path, nil)
	if err != nil {
		t.Fatalf("ParseSchemaGuide: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "guide.csv", "a,b,c")
	if _, err := ParseSchemaGuide(path, nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestChunkContentBreaksAtWhitespace(t *testing.T) {
	content := strings.Repeat("alpha beta gamma delta ", 30)
	chunks := chunkContent(content, 100, 20)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	words := map[string]bool{"alpha": true, "beta": true, "gamma": true, "delta": true}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d exceeds limit: %d chars", i, len(c))
		}
		fields := strings.Fields(c)
		if last := fields[len(fields)-1]; !words[last] {
			t.Errorf("chunk %d broke inside a word: ends with %q", i, last)
		}
	}
}

func TestChunkContentNoGapAfterCleanBreak(t *testing.T) {
	// break adjustment pulls end back before a word boundary; with zero
	// overlap the next chunk must start exactly there, losing nothing
	content := strings.TrimSpace(strings.Repeat("abcdefg ", 40))
	chunks := chunkContent(content, 50, 0)
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	total := 0
	for i, c := range chunks {
		for _, w := range strings.Fields(c) {
			total++
			if w != "abcdefg" {
				t.Fatalf("chunk %d carries truncated word %q, characters were dropped between chunks", i, w)
			}
		}
	}
	if want := len(strings.Fields(content)); total != want {
		t.Errorf("chunks carry %d words, want all %d", total, want)
	}
}

func TestChunkContentEmpty(t *testing.T) {
	if got := chunkContent("   \n  ", 100, 10); got != nil {
		t.Errorf("blank content produced %d chunks", len(got))
	}
	if got := chunkContent("text", 0, 0); got != nil {
		t.Error("non-positive size should produce no chunks")
	}
}
