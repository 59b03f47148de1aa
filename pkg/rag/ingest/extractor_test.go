package ingest

import (
	"context"
	"strings"
	"testing"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/partition"
	"multimodal-rag-be/pkg/vision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longText(prefix string) string {
	return prefix + " " + strings.Repeat("lorem ipsum dolor sit amet ", 4)
}

func newTestExtractor(d vision.Describer) *Extractor {
	return NewExtractor(ExtractorConfig{}, d, &sequenceIDs{}, logger.NewNop())
}

func TestExtractor_TextThreshold(t *testing.T) {
	e := newTestExtractor(nil)

	exact := strings.Repeat("a", DefaultMinTextLength)
	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindNarrativeText, Text: "too short", Page: 1},
		{Kind: partition.KindTitle, Text: exact, Page: 1},
		{Kind: partition.KindNarrativeText, Text: strings.Repeat("b", DefaultMinTextLength-1), Page: 2},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, exact, chunks[0].Text)
	assert.Equal(t, entity.ChunkTypeText, chunks[0].Type)
	assert.Equal(t, "doc.pdf", chunks[0].Source)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "doc.pdf_1", chunks[0].Id)
}

func TestExtractor_ThresholdCountsRunes(t *testing.T) {
	e := NewExtractor(ExtractorConfig{MinTextLength: 6}, nil, &sequenceIDs{}, logger.NewNop())

	// five runes, six bytes
	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindNarrativeText, Text: "héllo", Page: 1},
	})
	assert.Empty(t, chunks)
}

func TestExtractor_TablePrefix(t *testing.T) {
	e := newTestExtractor(nil)
	table := "Year | Revenue\n2023 | 100\n2024 | 140 " + strings.Repeat("x", 60)

	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindTable, Text: table, Page: 2},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, entity.ChunkTypeTable, chunks[0].Type)
	assert.Equal(t, "Table: "+table, chunks[0].Text)
	assert.Equal(t, 2, chunks[0].Page)
}

func TestExtractor_ImageDescription(t *testing.T) {
	describer := &stubDescriber{result: vision.Described("chart")}
	e := newTestExtractor(describer)
	prev := longText("Quarterly revenue grew.")

	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindNarrativeText, Text: prev, Page: 3},
		{Kind: partition.KindImage, Page: 3, ImagePath: "img/1.png"},
	})

	require.Len(t, chunks, 2)
	img := chunks[1]
	assert.Equal(t, entity.ChunkTypeImage, img.Type)
	assert.Equal(t, "Image context: Image on page 3 Visual content: chart Surrounding context: "+strings.TrimSpace(prev), img.Text)
	assert.Equal(t, []string{"img/1.png"}, describer.calls)
}

func TestExtractor_ImageClearsCursor(t *testing.T) {
	e := newTestExtractor(&stubDescriber{result: vision.Unavailable("offline")})

	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindNarrativeText, Text: longText("Context paragraph."), Page: 1},
		{Kind: partition.KindImage, Page: 1, ImagePath: "a.png"},
		// no label and no cursor: "Image on page 1" is too short to keep
		{Kind: partition.KindImage, Page: 1, ImagePath: "b.png"},
	})

	require.Len(t, chunks, 2)
	assert.Equal(t, entity.ChunkTypeText, chunks[0].Type)
	assert.Equal(t, entity.ChunkTypeImage, chunks[1].Type)
	assert.Contains(t, chunks[1].Text, "Surrounding context: Context paragraph.")
	assert.NotContains(t, chunks[1].Text, "Visual content")
}

func TestExtractor_DroppedTextDoesNotMoveCursor(t *testing.T) {
	e := newTestExtractor(nil)
	kept := longText("Kept paragraph.")

	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindNarrativeText, Text: kept, Page: 1},
		{Kind: partition.KindNarrativeText, Text: "short", Page: 1},
		{Kind: partition.KindImage, Page: 1},
	})

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasSuffix(chunks[1].Text, "Surrounding context: "+strings.TrimSpace(kept)))
}

func TestExtractor_DescriberFailureNeverFails(t *testing.T) {
	describer := &stubDescriber{result: vision.Unavailable("timeout")}
	e := newTestExtractor(describer)

	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindImage, Page: 4, ImagePath: "x.png", Caption: "Figure 2: Spinal cord cross-section"},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, "Image context: Image on page 4 Caption: Figure 2: Spinal cord cross-section", chunks[0].Text)
}

func TestExtractor_ImageWithoutSignalDropped(t *testing.T) {
	e := newTestExtractor(&stubDescriber{result: vision.Unavailable("offline")})

	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindImage, Page: 12, ImagePath: "x.png"},
	})
	assert.Empty(t, chunks)
}

func TestExtractor_PreservesOrder(t *testing.T) {
	e := newTestExtractor(&stubDescriber{result: vision.Described("diagram")})

	chunks := e.Extract(context.Background(), "doc.pdf", []partition.Element{
		{Kind: partition.KindTitle, Text: longText("Intro"), Page: 1},
		{Kind: partition.KindTable, Text: longText("a | b"), Page: 2},
		{Kind: partition.KindImage, Page: 2, ImagePath: "d.png"},
		{Kind: partition.KindNarrativeText, Text: longText("Outro"), Page: 3},
	})

	require.Len(t, chunks, 4)
	types := []entity.ChunkType{chunks[0].Type, chunks[1].Type, chunks[2].Type, chunks[3].Type}
	assert.Equal(t, []entity.ChunkType{entity.ChunkTypeText, entity.ChunkTypeTable, entity.ChunkTypeImage, entity.ChunkTypeText}, types)
	assert.Equal(t, []int{1, 2, 2, 3}, []int{chunks[0].Page, chunks[1].Page, chunks[2].Page, chunks[3].Page})
}

func TestUUIDGenerator_Unique(t *testing.T) {
	g := UUIDGenerator{}
	a, b := g.NewId("doc.pdf"), g.NewId("doc.pdf")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "doc.pdf_"))
}
