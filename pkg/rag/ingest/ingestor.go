package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/embedding"
	"multimodal-rag-be/pkg/partition"
	"multimodal-rag-be/pkg/rag/errs"
	"multimodal-rag-be/pkg/rag/index"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Ingestor runs the write path: partition -> extract -> embed -> index.
type Ingestor struct {
	partitioner partition.Partitioner
	extractor   *Extractor
	overview    *OverviewBuilder // nil disables the overview chunk
	embedder    embedding.EmbeddingProvider
	registry    *index.Registry
	logger      logger.ILogger

	EmbeddingTimeout time.Duration
}

func NewIngestor(
	partitioner partition.Partitioner,
	extractor *Extractor,
	overview *OverviewBuilder,
	embedder embedding.EmbeddingProvider,
	registry *index.Registry,
	log logger.ILogger,
) *Ingestor {
	return &Ingestor{
		partitioner:      partitioner,
		extractor:        extractor,
		overview:         overview,
		embedder:         embedder,
		registry:         registry,
		logger:           log,
		EmbeddingTimeout: 60 * time.Second,
	}
}

// Ingest stores the document's chunks in the session index and returns how many were stored.
// Zero chunks is a valid outcome, not an error.
func (i *Ingestor) Ingest(ctx context.Context, path string, sessionId string) (int, error) {
	ctx, span := otel.Tracer("multimodal-rag-be/rag").Start(ctx, "rag.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("rag.session_id", sessionId))

	n, err := i.ingest(ctx, path, sessionId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int("rag.chunks", n))
	return n, err
}

func (i *Ingestor) ingest(ctx context.Context, path string, sessionId string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, errs.NotFound("document %s", path)
		}
		return 0, fmt.Errorf("stat document: %w", err)
	}

	source := filepath.Base(path)
	elements, err := i.partitioner.Partition(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("partition %s: %w", source, err)
	}

	chunks := i.extractor.Extract(ctx, source, elements)
	if len(chunks) == 0 {
		i.logger.Warn("INGEST", constant.NoUsableContentMessage, map[string]interface{}{
			"session_id": sessionId,
			"source":     source,
			"elements":   len(elements),
		})
		return 0, nil
	}

	if i.overview != nil {
		if overview, ok := i.overview.Build(source, chunks); ok {
			overview.Id = i.extractor.ids.NewId(source)
			chunks = append(chunks, overview)
		}
	}

	chunks = i.sanitize(sessionId, chunks)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for idx, c := range chunks {
		texts[idx] = c.Text
	}

	embedCtx := ctx
	if i.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, i.EmbeddingTimeout)
		defer cancel()
	}
	vectors, err := i.embedder.Embed(embedCtx, texts)
	if err != nil {
		return 0, errs.Upstream("embedding", err)
	}
	if len(vectors) != len(chunks) {
		return 0, errs.Upstream("embedding", fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	chunks, vectors = i.dropEmptyVectors(sessionId, chunks, vectors)
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := i.registry.Append(ctx, sessionId, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}

	i.logger.Info("INGEST", "Document ingested", map[string]interface{}{
		"session_id": sessionId,
		"source":     source,
		"chunks":     len(chunks),
	})
	return len(chunks), nil
}

// sanitize drops duplicate ids and malformed chunks; the rest of the batch proceeds.
func (i *Ingestor) sanitize(sessionId string, chunks []entity.Chunk) []entity.Chunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]entity.Chunk, 0, len(chunks))

	for _, c := range chunks {
		var issue *errs.IntegrityIssue
		switch {
		case c.Id == "":
			issue = &errs.IntegrityIssue{Kind: errs.IntegrityMalformedChunk, Detail: "empty id"}
		case strings.TrimSpace(c.Text) == "":
			issue = &errs.IntegrityIssue{Kind: errs.IntegrityMalformedChunk, ChunkId: c.Id, Detail: "empty text"}
		case !c.Type.IsValid():
			issue = &errs.IntegrityIssue{Kind: errs.IntegrityMalformedChunk, ChunkId: c.Id, Detail: "unknown type " + string(c.Type)}
		case c.Page < 0:
			issue = &errs.IntegrityIssue{Kind: errs.IntegrityMalformedChunk, ChunkId: c.Id, Detail: "negative page"}
		}
		if issue == nil {
			if _, dup := seen[c.Id]; dup {
				issue = &errs.IntegrityIssue{Kind: errs.IntegrityDuplicateId, ChunkId: c.Id, Detail: "id already used in this batch"}
			}
		}

		if issue != nil {
			i.logIssue(sessionId, *issue)
			continue
		}
		seen[c.Id] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (i *Ingestor) dropEmptyVectors(sessionId string, chunks []entity.Chunk, vectors [][]float32) ([]entity.Chunk, [][]float32) {
	keptChunks := chunks[:0:0]
	keptVectors := vectors[:0:0]
	for idx, v := range vectors {
		if len(v) == 0 {
			i.logIssue(sessionId, errs.IntegrityIssue{
				Kind:    errs.IntegrityEmbeddingLength,
				ChunkId: chunks[idx].Id,
				Detail:  "empty embedding",
			})
			continue
		}
		keptChunks = append(keptChunks, chunks[idx])
		keptVectors = append(keptVectors, v)
	}
	return keptChunks, keptVectors
}

func (i *Ingestor) logIssue(sessionId string, issue errs.IntegrityIssue) {
	i.logger.Warn("INGEST", "Data integrity risk, chunk skipped", map[string]interface{}{
		"session_id": sessionId,
		"kind":       issue.Kind,
		"chunk_id":   issue.ChunkId,
		"detail":     issue.Detail,
	})
}
