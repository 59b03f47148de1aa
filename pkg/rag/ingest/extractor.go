package ingest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/partition"
	"multimodal-rag-be/pkg/vision"
)

const (
	DefaultMinTextLength             = 80
	DefaultMinImageDescriptionLength = 40
)

type ExtractorConfig struct {
	// Text and table chunks shorter than this (in runes) are dropped.
	MinTextLength int
	// Image descriptions must be strictly longer than this (in runes).
	MinImageDescriptionLength int
}

// Extractor turns partitioned elements into ordered chunks with provenance.
type Extractor struct {
	cfg       ExtractorConfig
	describer vision.Describer
	ids       IDGenerator
	logger    logger.ILogger
}

func NewExtractor(cfg ExtractorConfig, describer vision.Describer, ids IDGenerator, log logger.ILogger) *Extractor {
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = DefaultMinTextLength
	}
	if cfg.MinImageDescriptionLength <= 0 {
		cfg.MinImageDescriptionLength = DefaultMinImageDescriptionLength
	}
	if describer == nil {
		describer = vision.NoopDescriber{}
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Extractor{cfg: cfg, describer: describer, ids: ids, logger: log}
}

// Extract keeps element order. The preceding-text cursor is set by every kept
// text or table chunk and cleared by every kept image chunk.
func (e *Extractor) Extract(ctx context.Context, source string, elements []partition.Element) []entity.Chunk {
	var chunks []entity.Chunk
	var cursor string

	for _, el := range elements {
		switch el.Kind {
		case partition.KindNarrativeText, partition.KindTitle:
			text := strings.TrimSpace(el.Text)
			if utf8.RuneCountInString(text) < e.cfg.MinTextLength {
				continue
			}
			chunks = append(chunks, e.newChunk(source, text, entity.ChunkTypeText, el.Page))
			cursor = text

		case partition.KindTable:
			text := strings.TrimSpace(el.Text)
			if utf8.RuneCountInString(text) < e.cfg.MinTextLength {
				continue
			}
			chunks = append(chunks, e.newChunk(source, constant.TablePrefix+text, entity.ChunkTypeTable, el.Page))
			cursor = text

		case partition.KindImage:
			desc := e.describeImage(ctx, el, cursor)
			if utf8.RuneCountInString(desc) <= e.cfg.MinImageDescriptionLength {
				continue
			}
			chunks = append(chunks, e.newChunk(source, constant.ImageContextPrefix+desc, entity.ChunkTypeImage, el.Page))
			cursor = ""
		}
	}

	return chunks
}

func (e *Extractor) newChunk(source, text string, chunkType entity.ChunkType, page int) entity.Chunk {
	if page < 0 {
		page = 0
	}
	return entity.Chunk{
		Id:     e.ids.NewId(source),
		Text:   text,
		Type:   chunkType,
		Source: source,
		Page:   page,
	}
}

func (e *Extractor) describeImage(ctx context.Context, el partition.Element, cursor string) string {
	var parts []string

	if el.Page > 0 {
		parts = append(parts, fmt.Sprintf("Image on page %d", el.Page))
	}

	if el.ImagePath != "" {
		result := e.describer.Describe(ctx, el.ImagePath)
		if result.IsDescribed() {
			parts = append(parts, "Visual content: "+result.Label())
		} else {
			e.logger.Warn("INGEST", "Visual describer unavailable", map[string]interface{}{
				"image":  el.ImagePath,
				"page":   el.Page,
				"reason": result.Reason(),
			})
		}
	}

	if caption := strings.TrimSpace(el.Caption); caption != "" {
		parts = append(parts, "Caption: "+caption)
	}

	if cursor != "" {
		parts = append(parts, "Surrounding context: "+cursor)
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}
