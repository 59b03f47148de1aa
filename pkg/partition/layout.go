package partition

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// glyph is a positioned run of text on one baseline.
type glyph struct {
	X    float64
	W    float64
	Size float64
	S    string
}

// line is one visual row of a page split into cells by wide horizontal gaps.
type line struct {
	Y     float64
	Size  float64
	Cells []string
}

func (l line) Text() string {
	return strings.Join(l.Cells, " ")
}

const (
	minTableColumns = 3
	minTableRows    = 2
	maxTitleRunes   = 120
	titleSizeRatio  = 1.2
)

func glyphWidth(g glyph) float64 {
	if g.W > 0 {
		return g.W
	}
	return float64(utf8.RuneCountInString(g.S)) * g.Size * 0.5
}

// buildLine orders glyphs left to right and groups them into cells.
// A gap wider than 1.5 em starts a new cell; a gap wider than 0.2 em inserts a space.
func buildLine(y float64, glyphs []glyph) line {
	sorted := make([]glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			sorted = append(sorted, g)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	l := line{Y: y}
	if len(sorted) == 0 {
		return l
	}

	var cell strings.Builder
	var sizeSum float64
	end := sorted[0].X

	flush := func() {
		text := strings.Join(strings.Fields(cell.String()), " ")
		if text != "" {
			l.Cells = append(l.Cells, text)
		}
		cell.Reset()
	}

	for i, g := range sorted {
		size := g.Size
		if size <= 0 {
			size = 10
		}
		sizeSum += size

		if i > 0 {
			gap := g.X - end
			switch {
			case gap > size*1.5 && gap > 8:
				flush()
			case gap > size*0.2:
				cell.WriteByte(' ')
			}
		}
		cell.WriteString(g.S)
		if e := g.X + glyphWidth(g); e > end {
			end = e
		}
	}
	flush()

	l.Size = sizeSum / float64(len(sorted))
	return l
}

func isTabular(l line) bool {
	return len(l.Cells) >= minTableColumns
}

func medianSize(lines []line) float64 {
	sizes := make([]float64, 0, len(lines))
	for _, l := range lines {
		if l.Size > 0 {
			sizes = append(sizes, l.Size)
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	sort.Float64s(sizes)
	return sizes[len(sizes)/2]
}

func isTitle(l line, bodySize float64) bool {
	text := l.Text()
	if text == "" || len(l.Cells) > 1 || bodySize <= 0 {
		return false
	}
	if utf8.RuneCountInString(text) > maxTitleRunes {
		return false
	}
	if l.Size < bodySize*titleSizeRatio {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	return !unicode.IsPunct(last) || last == ')'
}

// groupLines turns the ordered lines of one page into elements.
// Runs of at least two tabular lines become one table; everything else
// is merged into paragraphs broken at titles, tables and wide vertical gaps.
func groupLines(lines []line, page int) []Element {
	var out []Element
	bodySize := medianSize(lines)

	var para []string
	var prevY float64
	var prevSize float64
	flushPara := func() {
		if len(para) > 0 {
			out = append(out, Element{Kind: KindNarrativeText, Text: strings.Join(para, " "), Page: page})
			para = nil
		}
	}

	for i := 0; i < len(lines); {
		l := lines[i]
		if len(l.Cells) == 0 {
			i++
			continue
		}

		if isTabular(l) {
			j := i
			for j < len(lines) && isTabular(lines[j]) {
				j++
			}
			if j-i >= minTableRows {
				flushPara()
				rows := make([]string, 0, j-i)
				for _, r := range lines[i:j] {
					rows = append(rows, strings.Join(r.Cells, " | "))
				}
				out = append(out, Element{Kind: KindTable, Text: strings.Join(rows, "\n"), Page: page})
				i = j
				continue
			}
		}

		if isTitle(l, bodySize) {
			flushPara()
			out = append(out, Element{Kind: KindTitle, Text: l.Text(), Page: page})
			i++
			continue
		}

		if len(para) > 0 {
			size := prevSize
			if size <= 0 {
				size = 10
			}
			if prevY-l.Y > size*1.8 {
				flushPara()
			}
		}
		para = append(para, l.Text())
		prevY = l.Y
		prevSize = l.Size
		i++
	}
	flushPara()

	return out
}

// splitParagraphs is the fallback when no positional text is available.
func splitParagraphs(text string, page int) []Element {
	var out []Element
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.Join(strings.Fields(block), " ")
		if block != "" {
			out = append(out, Element{Kind: KindNarrativeText, Text: block, Page: page})
		}
	}
	return out
}

var captionPrefixes = []string{"figure", "fig.", "fig ", "image", "diagram", "chart"}

// findCaption returns the first text element on the page that reads like a figure caption.
func findCaption(elements []Element) string {
	for _, el := range elements {
		if el.Kind == KindTable || el.Kind == KindImage {
			continue
		}
		lower := strings.ToLower(el.Text)
		for _, prefix := range captionPrefixes {
			if strings.HasPrefix(lower, prefix) {
				return el.Text
			}
		}
	}
	return ""
}
