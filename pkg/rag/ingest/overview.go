package ingest

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// OverviewBuilder synthesizes the document_overview chunk with an extractive
// summary: sentences ranked by normalised word frequency, kept in document order.
type OverviewBuilder struct {
	maxSentences int
	stopwords    map[string]struct{}
}

func NewOverviewBuilder(maxSentences int) *OverviewBuilder {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	return &OverviewBuilder{
		maxSentences: maxSentences,
		stopwords:    defaultStopwords(),
	}
}

// Build returns false when no text or table chunk exists to summarise.
func (b *OverviewBuilder) Build(source string, chunks []entity.Chunk) (entity.Chunk, bool) {
	var parts []string
	for _, c := range chunks {
		switch c.Type {
		case entity.ChunkTypeText:
			parts = append(parts, c.Text)
		case entity.ChunkTypeTable:
			parts = append(parts, strings.TrimPrefix(c.Text, constant.TablePrefix))
		}
	}
	if len(parts) == 0 {
		return entity.Chunk{}, false
	}

	summary := b.Summarize(strings.Join(parts, "\n"))
	if summary == "" {
		return entity.Chunk{}, false
	}

	return entity.Chunk{
		Text:   fmt.Sprintf(constant.DocumentOverviewLabel, source) + summary,
		Type:   entity.ChunkTypeDocumentOverview,
		Source: source,
		Page:   0,
	}, true
}

func (b *OverviewBuilder) Summarize(text string) string {
	var sentences []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= b.maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range b.tokens(sent) {
			if _, stop := b.stopwords[tok]; stop {
				continue
			}
			freq[tok]++
		}
	}

	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := b.tokens(sent)
		total := 0.0
		for _, tok := range toks {
			total += freq[tok]
		}
		// length-normalised so long sentences don't dominate
		if len(toks) > 0 {
			total /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{idx: i, score: total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, b.maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

func (b *OverviewBuilder) tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now", "table",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
