package index

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/rag/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	*MemoryBackend
	opens int32
}

func (b *countingBackend) Open(ctx context.Context, sessionId string) (Collection, error) {
	atomic.AddInt32(&b.opens, 1)
	return b.MemoryBackend.Open(ctx, sessionId)
}

// gatedBackend holds Open until release is closed and records the ctx it was given.
type gatedBackend struct {
	*MemoryBackend
	opens   int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
	openCtx context.Context
}

func (b *gatedBackend) Open(ctx context.Context, sessionId string) (Collection, error) {
	atomic.AddInt32(&b.opens, 1)
	b.openCtx = ctx
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.MemoryBackend.Open(ctx, sessionId)
}

func chunk(id, text string, t entity.ChunkType) entity.Chunk {
	return entity.Chunk{Id: id, Text: text, Type: t, Source: "doc.pdf", Page: 1}
}

func TestRegistry_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{MemoryBackend: NewMemoryBackend()}
	reg := NewRegistry(backend, logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Ensure(ctx, "s1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, reg.Upsert(ctx, "s1", []entity.Chunk{chunk("a", "alpha", entity.ChunkTypeText)}, [][]float32{{1, 0}}))
	_, err := reg.Ensure(ctx, "s1")
	require.NoError(t, err)

	count, err := reg.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "ensure must not reset content")
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.opens))
	assert.Equal(t, 1, reg.CachedSessions())
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())

	require.NoError(t, reg.Upsert(ctx, "a", []entity.Chunk{chunk("a1", "revenue grew", entity.ChunkTypeText)}, [][]float32{{1, 0}}))
	require.NoError(t, reg.Upsert(ctx, "b", []entity.Chunk{chunk("b1", "cats purr", entity.ChunkTypeText)}, [][]float32{{1, 0}}))

	hits, err := reg.Query(ctx, "a", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a1", hits[0].Chunk.Id)
}

func TestRegistry_QueryEdgeCases(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())

	hits, err := reg.Query(ctx, "unknown", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = reg.Ensure(ctx, "empty")
	require.NoError(t, err)
	hits, err = reg.Query(ctx, "empty", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, reg.Upsert(ctx, "s", []entity.Chunk{chunk("x", "x", entity.ChunkTypeText)}, [][]float32{{1, 0}}))
	hits, err = reg.Query(ctx, "s", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRegistry_QueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())

	chunks := []entity.Chunk{
		chunk("far", "far", entity.ChunkTypeText),
		chunk("near", "near", entity.ChunkTypeText),
		chunk("mid", "mid", entity.ChunkTypeImage),
	}
	vectors := [][]float32{{0, 1}, {1, 0}, {1, 1}}
	require.NoError(t, reg.Upsert(ctx, "s", chunks, vectors))

	hits, err := reg.Query(ctx, "s", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Chunk.Id)
	assert.Equal(t, "mid", hits[1].Chunk.Id)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestRegistry_UpsertReplacesById(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())

	require.NoError(t, reg.Upsert(ctx, "s", []entity.Chunk{chunk("a", "old", entity.ChunkTypeText)}, [][]float32{{1, 0}}))
	require.NoError(t, reg.Upsert(ctx, "s", []entity.Chunk{chunk("a", "new", entity.ChunkTypeText)}, [][]float32{{1, 0}}))

	count, err := reg.Count(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := reg.Query(ctx, "s", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", hits[0].Chunk.Text)
}

func TestRegistry_UpsertRejectsMismatchedBatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())

	err := reg.Upsert(ctx, "s", []entity.Chunk{chunk("a", "a", entity.ChunkTypeText)}, nil)
	assert.Error(t, err)

	err = reg.Upsert(ctx, "s", []entity.Chunk{chunk("", "a", entity.ChunkTypeText)}, [][]float32{{1}})
	assert.Error(t, err)
}

func TestRegistry_LookupByType(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())

	chunks := []entity.Chunk{
		chunk("t", "text", entity.ChunkTypeText),
		chunk("o", "overview", entity.ChunkTypeDocumentOverview),
	}
	require.NoError(t, reg.Upsert(ctx, "s", chunks, [][]float32{{1, 0}, {0, 1}}))

	found, err := reg.LookupByType(ctx, "s", entity.ChunkTypeDocumentOverview, 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "o", found[0].Id)

	found, err = reg.LookupByType(ctx, "other", entity.ChunkTypeDocumentOverview, 1)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRegistry_DropPurges(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())

	require.NoError(t, reg.Upsert(ctx, "s", []entity.Chunk{chunk("a", "a", entity.ChunkTypeText)}, [][]float32{{1, 0}}))

	found, err := reg.Drop(ctx, "s")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, reg.CachedSessions())

	hits, err := reg.Query(ctx, "s", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	found, err = reg.Drop(ctx, "s")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCollection_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())

	require.NoError(t, reg.Upsert(ctx, "s", []entity.Chunk{chunk("a", "a", entity.ChunkTypeText)}, [][]float32{{1, 0}}))
	_, err := reg.Query(ctx, "s", []float32{1, 0, 0}, 1)
	assert.Error(t, err)
}

func TestRegistry_CancelledOpenerDoesNotFailOthers(t *testing.T) {
	backend := &gatedBackend{
		MemoryBackend: NewMemoryBackend(),
		started:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	reg := NewRegistry(backend, logger.NewNop())

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reg.Ensure(first, "s1")
		firstErr <- err
	}()
	<-backend.started

	secondErr := make(chan error, 1)
	go func() {
		_, err := reg.Ensure(context.Background(), "s1")
		secondErr <- err
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller is still waiting on the shared open")
	}

	close(backend.release)
	select {
	case err := <-secondErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second caller never got the collection")
	}

	assert.NoError(t, backend.openCtx.Err(), "open must not inherit the first caller's cancellation")
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.opens))
	assert.Equal(t, 1, reg.CachedSessions())
}

func TestRegistry_AppendNeedsExistingCollection(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryBackend(), logger.NewNop())
	batch := []entity.Chunk{chunk("a", "alpha", entity.ChunkTypeText)}

	err := reg.Append(ctx, "s", batch, [][]float32{{1, 0}})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, 0, reg.CachedSessions())

	_, err = reg.Ensure(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, reg.Append(ctx, "s", batch, [][]float32{{1, 0}}))

	_, err = reg.Drop(ctx, "s")
	require.NoError(t, err)
	err = reg.Append(ctx, "s", batch, [][]float32{{1, 0}})
	assert.True(t, errs.IsNotFound(err), "a dropped collection stays dropped")

	exists, err := reg.backend.Exists(ctx, "s")
	require.NoError(t, err)
	assert.False(t, exists)
}
