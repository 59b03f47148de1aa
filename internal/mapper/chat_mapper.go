package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/model"

	"gorm.io/datatypes"
)

type ChatSessionMapper struct{}

func NewChatSessionMapper() *ChatSessionMapper {
	return &ChatSessionMapper{}
}

func (m *ChatSessionMapper) ToEntity(s *model.ChatSession) (*entity.ChatSession, error) {
	if s == nil {
		return nil, nil
	}

	history, err := DecodeHistory(s.History)
	if err != nil {
		return nil, err
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.SessionId,
		History:   history,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (m *ChatSessionMapper) ToModel(s *entity.ChatSession) (*model.ChatSession, error) {
	if s == nil {
		return nil, nil
	}

	history, err := EncodeHistory(s.History)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		SessionId: s.Id,
		History:   datatypes.JSON(history),
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}, nil
}

// EncodeHistory serialises turns as a JSON array; nil becomes "[]".
func EncodeHistory(turns []entity.Turn) ([]byte, error) {
	if turns == nil {
		turns = []entity.Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return raw, nil
}

// DecodeHistory accepts an empty payload as an empty history.
func DecodeHistory(raw []byte) ([]entity.Turn, error) {
	turns := []entity.Turn{}
	if len(raw) == 0 {
		return turns, nil
	}
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if turns == nil {
		turns = []entity.Turn{}
	}
	return turns, nil
}
