package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"multimodal-rag-be/internal/entity"
)

// MemoryBackend keeps collections in process memory with brute-force cosine search.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

var _ Backend = &MemoryBackend{}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*memoryCollection)}
}

func (b *MemoryBackend) Open(ctx context.Context, sessionId string) (Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.collections[sessionId]
	if !ok {
		c = &memoryCollection{items: make(map[string]*memoryItem)}
		b.collections[sessionId] = c
	}
	return c, nil
}

func (b *MemoryBackend) Exists(ctx context.Context, sessionId string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.collections[sessionId]
	return ok, nil
}

func (b *MemoryBackend) Drop(ctx context.Context, sessionId string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.collections[sessionId]
	delete(b.collections, sessionId)
	return ok, nil
}

type memoryItem struct {
	chunk  entity.Chunk
	vector []float32
	norm   float64
	seq    int
}

type memoryCollection struct {
	mu    sync.RWMutex
	items map[string]*memoryItem
	seq   int
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func (c *memoryCollection) Upsert(ctx context.Context, chunks []entity.Chunk, embeddings [][]float32) error {
	if err := validateBatch(chunks, embeddings); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, chunk := range chunks {
		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])

		seq := c.seq
		if existing, ok := c.items[chunk.Id]; ok {
			seq = existing.seq
		} else {
			c.seq++
		}
		c.items[chunk.Id] = &memoryItem{chunk: chunk, vector: vec, norm: norm(vec), seq: seq}
	}
	return nil
}

func (c *memoryCollection) ordered() []*memoryItem {
	items := make([]*memoryItem, 0, len(c.items))
	for _, it := range c.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	return items
}

func (c *memoryCollection) Query(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if k <= 0 || len(c.items) == 0 {
		return []Hit{}, nil
	}

	qNorm := norm(embedding)
	hits := make([]Hit, 0, len(c.items))
	for _, it := range c.ordered() {
		if len(it.vector) != len(embedding) {
			return nil, fmt.Errorf("embedding dimension %d does not match stored dimension %d", len(embedding), len(it.vector))
		}
		var dot float64
		for i := range embedding {
			dot += float64(embedding[i]) * float64(it.vector[i])
		}
		score := 0.0
		if qNorm > 0 && it.norm > 0 {
			score = dot / (qNorm * it.norm)
		}
		hits = append(hits, Hit{Chunk: it.chunk, Score: score})
	}

	// stable: equal scores keep insertion order
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (c *memoryCollection) FindByType(ctx context.Context, chunkType entity.ChunkType, limit int) ([]entity.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []entity.Chunk{}
	for _, it := range c.ordered() {
		if it.chunk.Type != chunkType {
			continue
		}
		out = append(out, it.chunk)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (c *memoryCollection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items), nil
}
