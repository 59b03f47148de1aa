package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"multimodal-rag-be/pkg/partition"
	"multimodal-rag-be/pkg/vision"

	"github.com/stretchr/testify/require"
)

type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequenceIDs) NewId(source string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s_%d", source, s.n)
}

// constantIDs returns the same id every time.
type constantIDs struct{}

func (constantIDs) NewId(source string) string { return source + "_fixed" }

type stubDescriber struct {
	result vision.Result
	calls  []string
}

func (d *stubDescriber) Describe(ctx context.Context, imagePath string) vision.Result {
	d.calls = append(d.calls, imagePath)
	return d.result
}

type stubPartitioner struct {
	elements []partition.Element
	err      error
	calls    int
}

func (p *stubPartitioner) Partition(ctx context.Context, path string) ([]partition.Element, error) {
	p.calls++
	return p.elements, p.err
}

// stubEmbedder maps every text to a fixed 2-d vector, or fails.
type stubEmbedder struct {
	err   error
	block bool
	calls int
}

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

func writeDocument(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}
