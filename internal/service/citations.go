package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leadertalk/leadertalk/internal/domain"
)

// FormatCitations derives a deduplicated source list from the chunks that
// grounded an answer, one "<label>, page <n>" line per distinct source.
// Lines are sorted for determinism.
func FormatCitations(chunks []domain.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var lines []string

	for _, sc := range chunks {
		page := "Unknown"
		if sc.Chunk.Page != domain.PageUnknown {
			page = strconv.Itoa(sc.Chunk.Page)
		}
		line := fmt.Sprintf("%s, page %s", sc.Chunk.SourceLabel, page)
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}

	sort.Strings(lines)
	return lines
}

// AppendCitations appends the citation block to an answer. The block is
// omitted entirely when there is nothing to cite.
func AppendCitations(answer string, chunks []domain.ScoredChunk) string {
	lines := FormatCitations(chunks)
	if len(lines) == 0 {
		return answer
	}
	return strings.TrimRight(answer, "\n") + "\n\nCitations:\n" + strings.Join(lines, "\n")
}
