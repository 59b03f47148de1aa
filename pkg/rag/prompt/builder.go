package prompt

import (
	"strconv"
	"strings"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
)

// Builder assembles one generation request from grounding, history and the question.
type Builder interface {
	Build(grounding []entity.RetrievalResult, question string, history string) string
}

// GroundedBuilder instructs the model to answer from the supplied context only.
type GroundedBuilder struct {
	SystemPrompt string
}

var _ Builder = &GroundedBuilder{}

func NewGroundedBuilder() *GroundedBuilder {
	return &GroundedBuilder{SystemPrompt: constant.GroundedSystemPrompt}
}

func (b *GroundedBuilder) Build(grounding []entity.RetrievalResult, question string, history string) string {
	var prompt strings.Builder

	prompt.WriteString(b.SystemPrompt)
	prompt.WriteString("\n\n")

	prompt.WriteString("Conversation history (for continuity only):\n")
	if strings.TrimSpace(history) == "" {
		history = constant.EmptyHistoryPlaceholder
	}
	prompt.WriteString(history)
	prompt.WriteString("\n\n")

	prompt.WriteString("Document context:\n")
	prompt.WriteString(RenderGrounding(grounding))
	prompt.WriteString("\n\n")

	prompt.WriteString("User question:\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\n")

	prompt.WriteString("Answer:")
	return prompt.String()
}

// RenderGrounding writes each chunk as "[Page p] text", separated by blank lines.
func RenderGrounding(grounding []entity.RetrievalResult) string {
	blocks := make([]string, len(grounding))
	for i, g := range grounding {
		page := constant.UnknownPagePlaceholder
		if g.Page > 0 {
			page = strconv.Itoa(g.Page)
		}
		blocks[i] = "[Page " + page + "] " + g.Text
	}
	return strings.Join(blocks, "\n\n")
}
