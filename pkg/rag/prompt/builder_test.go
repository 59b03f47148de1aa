package prompt

import (
	"strings"
	"testing"

	"multimodal-rag-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestGroundedBuilder_Build(t *testing.T) {
	b := NewGroundedBuilder()
	grounding := []entity.RetrievalResult{
		{Text: "Revenue grew 40%.", Page: 3},
		{Text: "Table: Year | Revenue", Page: 4},
	}

	prompt := b.Build(grounding, "How much did revenue grow?", "User: hi\nAssistant: hello")

	assert.True(t, strings.HasPrefix(prompt, "You are an expert document analysis assistant."))
	assert.Contains(t, prompt, "Do NOT say you lack access to the document.")
	assert.Contains(t, prompt, "Conversation history (for continuity only):\nUser: hi\nAssistant: hello\n\n")
	assert.Contains(t, prompt, "Document context:\n[Page 3] Revenue grew 40%.\n\n[Page 4] Table: Year | Revenue\n\n")
	assert.True(t, strings.HasSuffix(prompt, "User question:\nHow much did revenue grow?\n\nAnswer:"))
}

func TestGroundedBuilder_EmptyHistory(t *testing.T) {
	prompt := NewGroundedBuilder().Build([]entity.RetrievalResult{{Text: "x", Page: 1}}, "q", "  ")
	assert.Contains(t, prompt, "Conversation history (for continuity only):\nNone\n\n")
}

func TestRenderGrounding_UnknownPage(t *testing.T) {
	out := RenderGrounding([]entity.RetrievalResult{{Text: "Document overview of a.pdf: ...", Page: 0}})
	assert.Equal(t, "[Page N/A] Document overview of a.pdf: ...", out)
}
