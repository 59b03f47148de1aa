package index

import (
	"context"
	"fmt"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/rag/errs"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Registry caches one open Collection per session for the process lifetime.
// It is owned by the composition root and passed to whoever needs the index.
type Registry struct {
	backend Backend
	handles *cache.Cache
	opening singleflight.Group
	logger  logger.ILogger
}

func NewRegistry(backend Backend, log logger.ILogger) *Registry {
	return &Registry{
		backend: backend,
		handles: cache.New(cache.NoExpiration, 0),
		logger:  log,
	}
}

// Ensure opens (creating if needed) the session's collection. Idempotent.
func (r *Registry) Ensure(ctx context.Context, sessionId string) (Collection, error) {
	if sessionId == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if c, found := r.handles.Get(sessionId); found {
		return c.(Collection), nil
	}

	// concurrent first opens of one session share a single backend call;
	// the open outlives any one waiter so a cancelled caller does not fail the others
	openCtx := context.WithoutCancel(ctx)
	ch := r.opening.DoChan(sessionId, func() (interface{}, error) {
		if c, found := r.handles.Get(sessionId); found {
			return c, nil
		}
		c, err := r.backend.Open(openCtx, sessionId)
		if err != nil {
			return nil, err
		}
		r.handles.Set(sessionId, c, cache.NoExpiration)
		r.logger.Info("INDEX", "Opened session collection", map[string]interface{}{
			"session_id": sessionId,
		})
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("open collection for session %s: %w", sessionId, res.Err)
		}
		return res.Val.(Collection), nil
	}
}

// lookup returns the handle only if the collection already exists.
func (r *Registry) lookup(ctx context.Context, sessionId string) (Collection, bool, error) {
	if c, found := r.handles.Get(sessionId); found {
		return c.(Collection), true, nil
	}
	exists, err := r.backend.Exists(ctx, sessionId)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	c, err := r.Ensure(ctx, sessionId)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (r *Registry) Upsert(ctx context.Context, sessionId string, chunks []entity.Chunk, embeddings [][]float32) error {
	if err := validateBatch(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	c, err := r.Ensure(ctx, sessionId)
	if err != nil {
		return err
	}
	return c.Upsert(ctx, chunks, embeddings)
}

// Append adds chunks to a collection that already exists. It never creates one,
// so a write racing a Drop cannot bring the session's index back.
func (r *Registry) Append(ctx context.Context, sessionId string, chunks []entity.Chunk, embeddings [][]float32) error {
	if err := validateBatch(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	c, ok, err := r.lookup(ctx, sessionId)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound("vector collection for session %s", sessionId)
	}
	return c.Upsert(ctx, chunks, embeddings)
}

// Query returns an empty result, not an error, for unknown or empty sessions.
func (r *Registry) Query(ctx context.Context, sessionId string, embedding []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	c, ok, err := r.lookup(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Hit{}, nil
	}
	return c.Query(ctx, embedding, k)
}

func (r *Registry) LookupByType(ctx context.Context, sessionId string, chunkType entity.ChunkType, limit int) ([]entity.Chunk, error) {
	c, ok, err := r.lookup(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []entity.Chunk{}, nil
	}
	return c.FindByType(ctx, chunkType, limit)
}

func (r *Registry) Count(ctx context.Context, sessionId string) (int, error) {
	c, ok, err := r.lookup(ctx, sessionId)
	if err != nil || !ok {
		return 0, err
	}
	return c.Count(ctx)
}

// Drop evicts the cached handle and purges the backend collection.
func (r *Registry) Drop(ctx context.Context, sessionId string) (bool, error) {
	r.handles.Delete(sessionId)
	r.opening.Forget(sessionId)

	found, err := r.backend.Drop(ctx, sessionId)
	if err != nil {
		return false, fmt.Errorf("drop collection for session %s: %w", sessionId, err)
	}
	if found {
		r.logger.Info("INDEX", "Dropped session collection", map[string]interface{}{
			"session_id": sessionId,
		})
	}
	return found, nil
}

func (r *Registry) CachedSessions() int {
	return r.handles.ItemCount()
}
