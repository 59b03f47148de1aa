package index

import (
	"context"
	"fmt"

	"multimodal-rag-be/internal/entity"
)

// Hit is one nearest-neighbour result with its cosine similarity.
type Hit struct {
	Chunk entity.Chunk
	Score float64
}

// Collection is the open handle of one session's index.
type Collection interface {
	// Upsert writes chunks by id; chunks[i] is bound to embeddings[i].
	Upsert(ctx context.Context, chunks []entity.Chunk, embeddings [][]float32) error
	// Query returns up to k chunks ordered by descending similarity.
	Query(ctx context.Context, embedding []float32, k int) ([]Hit, error)
	// FindByType is an exact metadata filter in insertion order.
	FindByType(ctx context.Context, chunkType entity.ChunkType, limit int) ([]entity.Chunk, error)
	Count(ctx context.Context) (int, error)
}

// Backend stores one collection per session.
type Backend interface {
	// Open creates the collection if absent. It never resets existing content.
	Open(ctx context.Context, sessionId string) (Collection, error)
	Exists(ctx context.Context, sessionId string) (bool, error)
	// Drop removes the collection and every chunk in it.
	Drop(ctx context.Context, sessionId string) (bool, error)
}

func validateBatch(chunks []entity.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(embeddings))
	}
	for i, c := range chunks {
		if c.Id == "" {
			return fmt.Errorf("chunk %d has no id", i)
		}
		if len(embeddings[i]) == 0 {
			return fmt.Errorf("chunk %s has an empty embedding", c.Id)
		}
	}
	return nil
}
