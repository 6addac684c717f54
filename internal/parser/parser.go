// Package parser turns a schema-guide document into chunks suitable for
// embedding. Supported formats: txt, md, pdf, docx, xlsx, ods.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"schema-rag/internal/config"
	"schema-rag/internal/models"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultPageNumber   = 1
)

type guideParser struct {
	chunkSize    int
	chunkOverlap int
}

// ParseSchemaGuide reads the file at filePath and splits it into chunks
// using the configured size and overlap.
func ParseSchemaGuide(filePath string, cfg *config.RAGConfig) ([]models.Chunk, error) {
	p := guideParser{chunkSize: defaultChunkSize, chunkOverlap: defaultChunkOverlap}
	if cfg != nil && cfg.ChunkSize > 0 {
		p.chunkSize = cfg.ChunkSize
		p.chunkOverlap = cfg.ChunkOverlap
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return p.parsePDF(filePath)
	case ".docx":
		return p.parseDOCX(filePath)
	case ".xlsx":
		return p.parseXLSX(filePath)
	case ".ods":
		return p.parseODS(filePath)
	case ".md", ".markdown":
		return p.parseMarkdown(filePath)
	case ".txt":
		return p.parseText(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func (p guideParser) parsePDF(filePath string) ([]models.Chunk, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for i := 1; i <= reader.NumPage(); i++ {
		pageText, err := reader.Page(i).GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, p.getChunks(pageText, i)...)
	}
	return chunks, nil
}

func (p guideParser) parseDOCX(filePath string) ([]models.Chunk, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var sb strings.Builder
	for _, para := range strings.Split(content, "\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		sb.WriteString(para)
		sb.WriteString("\n")
	}
	return p.getChunks(sb.String(), defaultPageNumber), nil
}

func (p guideParser) parseXLSX(filePath string) ([]models.Chunk, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for sheetNum, sheet := range f.Sheets {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				sb.WriteString(cell.String() + "\t")
			}
			sb.WriteString("\n")
		}
		chunks = append(chunks, p.getChunks(sb.String(), sheetNum+1)...)
	}
	return chunks, nil
}

func (p guideParser) parseODS(filePath string) ([]models.Chunk, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []models.Chunk
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				sb.WriteString(cell + "\t")
			}
			sb.WriteString("\n")
		}
		chunks = append(chunks, p.getChunks(sb.String(), sheetNum+1)...)
	}
	return chunks, nil
}

// parseMarkdown splits the guide on level-1/2 headings so each table or
// topic section stays together, then chunks oversized sections.
func (p guideParser) parseMarkdown(filePath string) ([]models.Chunk, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var chunks []models.Chunk
	chunkID := 0
	for _, section := range splitMarkdownSections(data) {
		for _, part := range chunkContent(section, p.chunkSize, p.chunkOverlap) {
			chunkID++
			chunks = append(chunks, models.Chunk{
				Content:    part,
				PageNumber: defaultPageNumber,
				ChunkID:    chunkID,
			})
		}
	}
	return chunks, nil
}

func (p guideParser) parseText(filePath string) ([]models.Chunk, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return p.getChunks(string(data), defaultPageNumber), nil
}

// splitMarkdownSections returns the raw source split at level-1/2 heading
// boundaries. Content before the first heading becomes its own section.
func splitMarkdownSections(src []byte) []string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var starts []int
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > 2 || h.Lines().Len() == 0 {
			continue
		}
		start := h.Lines().At(0).Start
		for start > 0 && src[start-1] != '\n' {
			start--
		}
		starts = append(starts, start)
	}
	if len(starts) == 0 {
		return []string{string(src)}
	}

	var sections []string
	if head := strings.TrimSpace(string(src[:starts[0]])); head != "" {
		sections = append(sections, head)
	}
	for i, start := range starts {
		end := len(src)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if s := strings.TrimSpace(string(src[start:end])); s != "" {
			sections = append(sections, s)
		}
	}
	return sections
}

// chunkContent splits content into chunks of at most maxChars with
// overlapChars of overlap, preferring to break at a space, newline or
// sentence end near the boundary.
func chunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}
	content = strings.TrimSpace(content)
	contentLen := len(content)
	if contentLen == 0 {
		return nil
	}
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)
		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}
		if chunk := strings.TrimSpace(content[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= contentLen {
			break
		}
		// advance from the adjusted end, not the nominal chunk size, so a
		// clean break never opens a gap before the next chunk
		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func (p guideParser) getChunks(content string, pageNumber int) []models.Chunk {
	var chunks []models.Chunk
	for i, part := range chunkContent(content, p.chunkSize, p.chunkOverlap) {
		chunks = append(chunks, models.Chunk{
			Content:    part,
			PageNumber: pageNumber,
			ChunkID:    i + 1,
		})
	}
	return chunks
}
