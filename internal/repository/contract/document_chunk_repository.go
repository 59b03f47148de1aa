package contract

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"
)

// ScoredDocumentChunk wraps DocumentChunk with its similarity score
type ScoredDocumentChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64 // 1.0 = identical direction
}

type DocumentChunkRepository interface {
	// UpsertBulk inserts chunks, replacing any row with the same id.
	UpsertBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteBySessionId(ctx context.Context, sessionId string) (int64, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar ranks one session's chunks by cosine similarity.
	SearchSimilar(ctx context.Context, sessionId string, embedding []float32, limit int) ([]*ScoredDocumentChunk, error)
}
