package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/ledongthuc/pdf"
)

// Chunker splits a source document into overlapping text chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given character size and overlap.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 200
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ChunkFile parses the document at path and returns its chunks in document
// order. PDF pages carry 1-based page numbers; plain text formats carry
// PageUnknown. Returns domain.ErrIngestion when the document cannot be
// parsed or yields no text.
func (c *Chunker) ChunkFile(path string) ([]domain.Chunk, error) {
	label := filepath.Base(path)

	var chunks []domain.Chunk
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := extractPDFPages(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrIngestion, label, err)
		}
		for i, text := range pages {
			chunks = append(chunks, c.chunkText(text, label, i+1)...)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrIngestion, label, err)
		}
		chunks = c.chunkText(string(data), label, domain.PageUnknown)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %s", domain.ErrIngestion, label)
	}

	return chunks, nil
}

// chunkText splits text into overlapping chunks broken at word boundaries.
func (c *Chunker) chunkText(text, label string, page int) []domain.Chunk {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil
	}

	var chunks []domain.Chunk
	start := 0

	for start < len(content) {
		end := start + c.chunkSize
		if end > len(content) {
			end = len(content)
		}

		// Break at the last word boundary inside the window
		if end < len(content) {
			if lastSpace := strings.LastIndex(content[start:end], " "); lastSpace > 0 {
				end = start + lastSpace
			}
		}

		if piece := strings.TrimSpace(content[start:end]); piece != "" {
			chunks = append(chunks, domain.Chunk{
				Text:        piece,
				SourceLabel: label,
				Page:        page,
			})
		}

		if end >= len(content) {
			break
		}
		// Overlap the next window, but always make forward progress
		next := end - c.chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the whole document
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}
