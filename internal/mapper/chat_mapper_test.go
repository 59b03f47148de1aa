package mapper

import (
	"testing"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDecodeHistory(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []entity.Turn
	}{
		{"empty payload", "", []entity.Turn{}},
		{"null", "null", []entity.Turn{}},
		{"turns", `[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`, []entity.Turn{
			{Role: entity.TurnRoleUser, Content: "hi"},
			{Role: entity.TurnRoleAssistant, Content: "hello"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHistory([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DecodeHistory([]byte("{broken"))
	assert.Error(t, err)
}

func TestChatSessionMapper(t *testing.T) {
	m := NewChatSessionMapper()
	now := time.Now()

	e, err := m.ToEntity(&model.ChatSession{
		SessionId: "s1",
		History:   datatypes.JSON(`[{"role":"user","content":"q"}]`),
		CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", e.Id)
	assert.Nil(t, e.UpdatedAt)
	assert.Len(t, e.History, 1)

	back, err := m.ToModel(&entity.ChatSession{Id: "s2"})
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(back.History))
}

func TestDocumentChunkMapper(t *testing.T) {
	m := NewDocumentChunkMapper()
	in := &entity.DocumentChunk{
		Chunk:     entity.Chunk{Id: "a_1", Text: "t", Type: entity.ChunkTypeTable, Source: "a.pdf", Page: 2},
		SessionId: "s1",
		Embedding: []float32{0.1, 0.2},
	}

	out := m.ToEntity(m.ToModel(in))
	assert.Equal(t, in.Chunk, out.Chunk)
	assert.Equal(t, in.Embedding, out.Embedding)
	assert.Nil(t, m.ToModel(nil))
}
