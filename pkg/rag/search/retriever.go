package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/embedding"
	"multimodal-rag-be/pkg/rag/errs"
	"multimodal-rag-be/pkg/rag/index"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultTopK = 6

// Retriever routes a query to the overview chunk or to semantic search, always
// within the caller's session.
type Retriever struct {
	embeddingProvider embedding.EmbeddingProvider
	registry          *index.Registry
	logger            logger.ILogger

	EmbeddingTimeout time.Duration
}

func NewRetriever(embeddingProvider embedding.EmbeddingProvider, registry *index.Registry, log logger.ILogger) *Retriever {
	return &Retriever{
		embeddingProvider: embeddingProvider,
		registry:          registry,
		logger:            log,
		EmbeddingTimeout:  60 * time.Second,
	}
}

// IsSummaryQuery reports whether the query asks about the document as a whole.
func IsSummaryQuery(query string) bool {
	q := strings.ToLower(query)
	for _, trigger := range constant.SummaryTriggers {
		if strings.Contains(q, trigger) {
			return true
		}
	}
	return false
}

// Retrieve returns an empty slice, not an error, when nothing is indexed for the session.
func (r *Retriever) Retrieve(ctx context.Context, query string, sessionId string, k int) ([]entity.RetrievalResult, error) {
	ctx, span := otel.Tracer("multimodal-rag-be/rag").Start(ctx, "rag.retrieve")
	defer span.End()

	if IsSummaryQuery(query) {
		overview, err := r.registry.LookupByType(ctx, sessionId, entity.ChunkTypeDocumentOverview, 1)
		if err != nil {
			return nil, fmt.Errorf("overview lookup: %w", err)
		}
		if len(overview) > 0 {
			span.SetAttributes(attribute.String("rag.route", "overview"))
			r.logger.Debug("RETRIEVE", "Answered from document overview", map[string]interface{}{
				"session_id": sessionId,
				"chunk_id":   overview[0].Id,
			})
			return []entity.RetrievalResult{toResult(overview[0], 1)}, nil
		}
	}

	span.SetAttributes(attribute.String("rag.route", "semantic"), attribute.Int("rag.k", k))
	if k <= 0 {
		return []entity.RetrievalResult{}, nil
	}

	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.registry.Query(ctx, sessionId, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]entity.RetrievalResult, 0, len(hits))
	for i, hit := range hits {
		results = append(results, toResult(hit.Chunk, hit.Score))
		r.logger.Debug("RETRIEVE", "Hit", map[string]interface{}{
			"session_id": sessionId,
			"rank":       i + 1,
			"score":      hit.Score,
			"type":       hit.Chunk.Type,
			"page":       hit.Chunk.Page,
		})
	}
	span.SetAttributes(attribute.Int("rag.hits", len(results)))
	return results, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.EmbeddingTimeout)
		defer cancel()
	}

	vectors, err := r.embeddingProvider.Embed(ctx, []string{query})
	if err != nil {
		return nil, errs.Upstream("embedding", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, errs.Upstream("embedding", fmt.Errorf("expected one query vector, got %d", len(vectors)))
	}
	return vectors[0], nil
}

func toResult(c entity.Chunk, score float64) entity.RetrievalResult {
	return entity.RetrievalResult{
		Text:   c.Text,
		Source: c.Source,
		Page:   c.Page,
		Type:   c.Type,
		Score:  score,
	}
}
