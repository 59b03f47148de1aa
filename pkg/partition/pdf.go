package partition

import (
	"context"
	"fmt"
	"sort"

	"multimodal-rag-be/internal/pkg/logger"

	"github.com/ledongthuc/pdf"
)

// PDFPartitioner extracts titles, paragraphs, tables and embedded images from a PDF.
type PDFPartitioner struct {
	ImageDir string
	Logger   logger.ILogger
}

func NewPDFPartitioner(imageDir string, log logger.ILogger) *PDFPartitioner {
	return &PDFPartitioner{ImageDir: imageDir, Logger: log}
}

func (p *PDFPartitioner) Partition(ctx context.Context, path string) ([]Element, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var elements []Element
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageElements, err := p.partitionPage(page, i)
		if err != nil {
			p.Logger.Warn("PARTITION", "Skipping unreadable page", map[string]interface{}{
				"path":  path,
				"page":  i,
				"error": err.Error(),
			})
			continue
		}
		elements = append(elements, pageElements...)
	}

	return elements, nil
}

// partitionPage recovers from the panics the pdf reader raises on malformed input.
func (p *PDFPartitioner) partitionPage(page pdf.Page, num int) (elements []Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page: %v", r)
		}
	}()

	elements = p.pageText(page, num)

	images := p.pageImages(page, num)
	caption := findCaption(elements)
	for i := range images {
		images[i].Caption = caption
	}
	return append(elements, images...), nil
}

func (p *PDFPartitioner) pageText(page pdf.Page, num int) []Element {
	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil
		}
		return splitParagraphs(text, num)
	}

	// PDF y grows upwards; read top to bottom.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	lines := make([]line, 0, len(rows))
	for _, row := range rows {
		glyphs := make([]glyph, 0, len(row.Content))
		for _, t := range row.Content {
			glyphs = append(glyphs, glyph{X: t.X, W: t.W, Size: t.FontSize, S: t.S})
		}
		lines = append(lines, buildLine(float64(row.Position), glyphs))
	}

	return groupLines(lines, num)
}

func (p *PDFPartitioner) pageImages(page pdf.Page, num int) []Element {
	xobjects := page.Resources().Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return nil
	}

	var out []Element
	for _, name := range xobjects.Keys() {
		xobj := xobjects.Key(name)
		if xobj.Key("Subtype").Name() != "Image" {
			continue
		}

		if isIcon(xobj) {
			continue
		}

		el := Element{Kind: KindImage, Page: num}
		if p.ImageDir != "" {
			imagePath, err := saveImage(xobj, p.ImageDir)
			if err != nil {
				p.Logger.Debug("PARTITION", "Image pixels not extracted", map[string]interface{}{
					"page":  num,
					"name":  name,
					"error": err.Error(),
				})
			}
			el.ImagePath = imagePath
		}
		out = append(out, el)
	}
	return out
}
