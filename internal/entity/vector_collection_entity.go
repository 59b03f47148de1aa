package entity

import "time"

type VectorCollection struct {
	SessionId string
	CreatedAt time.Time
}

// DocumentChunk is a Chunk bound to its session and embedding.
type DocumentChunk struct {
	Chunk
	SessionId string
	Embedding []float32
	CreatedAt time.Time
}
