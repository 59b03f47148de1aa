package response

import (
	"fmt"
	"strings"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
)

// Citation is one deduplicated (source, page) pair with its 1-based index.
type Citation struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

func (c Citation) String() string {
	return fmt.Sprintf("[%d] %s — page %d", c.Index, c.Source, c.Page)
}

// Citations dedupes by (source, page) in retrieval order; the first sighting fixes the number.
func Citations(results []entity.RetrievalResult) []Citation {
	type key struct {
		source string
		page   int
	}
	seen := make(map[key]struct{}, len(results))
	out := make([]Citation, 0, len(results))

	for _, r := range results {
		k := key{r.Source, r.Page}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, Citation{Index: len(out) + 1, Source: r.Source, Page: r.Page})
	}
	return out
}

// FormatCitations renders one "[n] source — page p" line per citation.
func FormatCitations(results []entity.RetrievalResult) string {
	citations := Citations(results)
	lines := make([]string, len(citations))
	for i, c := range citations {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

// AppendCitations composes the answer with its "Sources:" block. Answers without
// citations are returned unchanged.
func AppendCitations(answer string, results []entity.RetrievalResult) string {
	block := FormatCitations(results)
	if block == "" {
		return answer
	}
	return answer + "\n\n" + constant.CitationsHeader + "\n" + block
}
