package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/partition"
	"multimodal-rag-be/pkg/rag/errs"
	"multimodal-rag-be/pkg/rag/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestFixture struct {
	partitioner *stubPartitioner
	embedder    *stubEmbedder
	registry    *index.Registry
	ingestor    *Ingestor
}

func newIngestFixture(t *testing.T, elements []partition.Element, ids IDGenerator, overview *OverviewBuilder) *ingestFixture {
	log := logger.NewNop()
	f := &ingestFixture{
		partitioner: &stubPartitioner{elements: elements},
		embedder:    &stubEmbedder{},
		registry:    index.NewRegistry(index.NewMemoryBackend(), log),
	}
	extractor := NewExtractor(ExtractorConfig{}, nil, ids, log)
	f.ingestor = NewIngestor(f.partitioner, extractor, overview, f.embedder, f.registry, log)

	_, err := f.registry.Ensure(context.Background(), "s1")
	require.NoError(t, err)
	return f
}

func sampleElements() []partition.Element {
	return []partition.Element{
		{Kind: partition.KindNarrativeText, Text: longText("The report covers revenue."), Page: 1},
		{Kind: partition.KindTable, Text: longText("Year | Revenue"), Page: 2},
	}
}

func TestIngestor_MissingDocument(t *testing.T) {
	f := newIngestFixture(t, sampleElements(), &sequenceIDs{}, nil)

	n, err := f.ingestor.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "s1")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.partitioner.calls, "nothing is extracted for a missing file")
}

func TestIngestor_StoresChunksWithOverview(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, sampleElements(), &sequenceIDs{}, NewOverviewBuilder(3))

	n, err := f.ingestor.Ingest(ctx, writeDocument(t, "report.pdf"), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := f.registry.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	overview, err := f.registry.LookupByType(ctx, "s1", entity.ChunkTypeDocumentOverview, 1)
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, "report.pdf", overview[0].Source)
	assert.NotEmpty(t, overview[0].Id)
}

func TestIngestor_ZeroChunksIsNotAnError(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, []partition.Element{
		{Kind: partition.KindNarrativeText, Text: "tiny", Page: 1},
	}, &sequenceIDs{}, NewOverviewBuilder(3))

	n, err := f.ingestor.Ingest(ctx, writeDocument(t, "empty.pdf"), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.embedder.calls)
}

func TestIngestor_DuplicateIdsAreSkipped(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, sampleElements(), constantIDs{}, nil)

	n, err := f.ingestor.Ingest(ctx, writeDocument(t, "dup.pdf"), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := f.registry.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestor_RepeatedIngestDoesNotClobber(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, sampleElements(), UUIDGenerator{}, nil)
	path := writeDocument(t, "same.pdf")

	_, err := f.ingestor.Ingest(ctx, path, "s1")
	require.NoError(t, err)
	_, err = f.ingestor.Ingest(ctx, path, "s1")
	require.NoError(t, err)

	count, err := f.registry.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestIngestor_EmbeddingFailureIsUpstream(t *testing.T) {
	f := newIngestFixture(t, sampleElements(), &sequenceIDs{}, nil)
	f.embedder.err = errors.New("connection refused")

	_, err := f.ingestor.Ingest(context.Background(), writeDocument(t, "a.pdf"), "s1")
	require.Error(t, err)
	assert.True(t, errs.IsUpstream(err))

	var ue *errs.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "embedding", ue.Service)
}

func TestIngestor_EmbeddingTimeout(t *testing.T) {
	f := newIngestFixture(t, sampleElements(), &sequenceIDs{}, nil)
	f.embedder.block = true
	f.ingestor.EmbeddingTimeout = 20 * time.Millisecond

	_, err := f.ingestor.Ingest(context.Background(), writeDocument(t, "slow.pdf"), "s1")
	require.Error(t, err)
	assert.True(t, errs.IsUpstream(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIngestor_PartitionFailure(t *testing.T) {
	f := newIngestFixture(t, nil, &sequenceIDs{}, nil)
	f.partitioner.err = errors.New("corrupt xref table")

	_, err := f.ingestor.Ingest(context.Background(), writeDocument(t, "bad.pdf"), "s1")
	require.Error(t, err)
	assert.False(t, errs.IsUpstream(err))
	assert.Contains(t, err.Error(), "corrupt xref table")
}

func TestIngestor_UnknownSessionIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, sampleElements(), &sequenceIDs{}, nil)

	_, err := f.ingestor.Ingest(ctx, writeDocument(t, "late.pdf"), "gone")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	count, err := f.registry.Count(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 1, f.registry.CachedSessions(), "no collection is opened for the unknown session")
}
