package partition

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextPartitioner handles plain text and markdown. Markdown headings become
// titles and pipe tables become tables; everything is page 0.
type TextPartitioner struct{}

func (TextPartitioner) Partition(ctx context.Context, path string) ([]Element, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return PartitionText(string(raw)), nil
}

func PartitionText(text string) []Element {
	var out []Element
	var para []string
	var table []string

	flushPara := func() {
		if len(para) > 0 {
			out = append(out, Element{Kind: KindNarrativeText, Text: strings.Join(para, " ")})
			para = nil
		}
	}
	flushTable := func() {
		if len(table) > 0 {
			out = append(out, Element{Kind: KindTable, Text: strings.Join(table, "\n")})
			table = nil
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		l := strings.TrimSpace(raw)

		switch {
		case l == "":
			flushPara()
			flushTable()
		case strings.HasPrefix(l, "#"):
			flushPara()
			flushTable()
			out = append(out, Element{Kind: KindTitle, Text: strings.TrimSpace(strings.TrimLeft(l, "#"))})
		case strings.HasPrefix(l, "|") && strings.HasSuffix(l, "|"):
			flushPara()
			if row := tableRow(l); row != "" {
				table = append(table, row)
			}
		default:
			flushTable()
			para = append(para, l)
		}
	}
	flushPara()
	flushTable()

	return out
}

// tableRow normalises "| a | b |" to "a | b"; separator rows return "".
func tableRow(l string) string {
	cells := strings.Split(strings.Trim(l, "|"), "|")
	kept := make([]string, 0, len(cells))
	separator := true
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if strings.Trim(c, "-: ") != "" {
			separator = false
		}
		kept = append(kept, c)
	}
	if separator {
		return ""
	}
	return strings.Join(kept, " | ")
}
