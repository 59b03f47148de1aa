package partition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionText(t *testing.T) {
	doc := "# Overview\n\nLine one\nline two.\n\n| Drug | Dose |\n|------|------|\n| A | 5mg |\n\nTail."

	got := PartitionText(doc)
	require.Len(t, got, 4)

	assert.Equal(t, Element{Kind: KindTitle, Text: "Overview"}, got[0])
	assert.Equal(t, Element{Kind: KindNarrativeText, Text: "Line one line two."}, got[1])
	assert.Equal(t, Element{Kind: KindTable, Text: "Drug | Dose\nA | 5mg"}, got[2])
	assert.Equal(t, "Tail.", got[3].Text)
}

func TestByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.MD")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	p := ByExtension{".md": TextPartitioner{}}
	assert.True(t, p.Supports(path))
	assert.False(t, p.Supports("a.docx"))

	got, err := p.Partition(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = p.Partition(context.Background(), "a.docx")
	assert.ErrorContains(t, err, "unsupported document type")
}
