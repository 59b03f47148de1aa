package index

import (
	"context"
	"fmt"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"
	"multimodal-rag-be/internal/repository/unitofwork"
)

// PgvectorBackend keeps every session's chunks in one document_chunks table,
// partitioned by session_id, with a vector_collections row marking existence.
type PgvectorBackend struct {
	uowFactory unitofwork.RepositoryFactory
}

var _ Backend = &PgvectorBackend{}

func NewPgvectorBackend(uowFactory unitofwork.RepositoryFactory) *PgvectorBackend {
	return &PgvectorBackend{uowFactory: uowFactory}
}

func (b *PgvectorBackend) Open(ctx context.Context, sessionId string) (Collection, error) {
	uow := b.uowFactory.NewUnitOfWork(ctx)
	if err := uow.VectorCollectionRepository().CreateIfAbsent(ctx, sessionId); err != nil {
		return nil, fmt.Errorf("create vector collection: %w", err)
	}
	return &pgCollection{sessionId: sessionId, uowFactory: b.uowFactory}, nil
}

func (b *PgvectorBackend) Exists(ctx context.Context, sessionId string) (bool, error) {
	uow := b.uowFactory.NewUnitOfWork(ctx)
	return uow.VectorCollectionRepository().Exists(ctx, sessionId)
}

func (b *PgvectorBackend) Drop(ctx context.Context, sessionId string) (bool, error) {
	uow := b.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer uow.Rollback()

	removed, err := uow.DocumentChunkRepository().DeleteBySessionId(ctx, sessionId)
	if err != nil {
		return false, fmt.Errorf("delete chunks: %w", err)
	}
	found, err := uow.VectorCollectionRepository().Delete(ctx, sessionId)
	if err != nil {
		return false, fmt.Errorf("delete vector collection: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return false, err
	}
	return found || removed > 0, nil
}

type pgCollection struct {
	sessionId  string
	uowFactory unitofwork.RepositoryFactory
}

func (c *pgCollection) Upsert(ctx context.Context, chunks []entity.Chunk, embeddings [][]float32) error {
	if err := validateBatch(chunks, embeddings); err != nil {
		return err
	}

	rows := make([]*entity.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		rows[i] = &entity.DocumentChunk{
			Chunk:     chunk,
			SessionId: c.sessionId,
			Embedding: embeddings[i],
		}
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().UpsertBulk(ctx, rows); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return uow.Commit()
}

func (c *pgCollection) Query(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentChunkRepository().SearchSimilar(ctx, c.sessionId, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		hits = append(hits, Hit{Chunk: s.Chunk.Chunk, Score: s.Similarity})
	}
	return hits, nil
}

func (c *pgCollection) FindByType(ctx context.Context, chunkType entity.ChunkType, limit int) ([]entity.Chunk, error) {
	specs := []specification.Specification{
		specification.BySessionID{SessionID: c.sessionId},
		specification.ByChunkType{Type: chunkType},
		specification.OrderBy{Field: "created_at"},
		specification.OrderBy{Field: "id"},
	}
	if limit > 0 {
		specs = append(specs, specification.Pagination{Limit: limit})
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.DocumentChunkRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	out := make([]entity.Chunk, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Chunk)
	}
	return out, nil
}

func (c *pgCollection) Count(ctx context.Context) (int, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	n, err := uow.DocumentChunkRepository().Count(ctx, specification.BySessionID{SessionID: c.sessionId})
	return int(n), err
}
