package contract

import (
	"context"

	"multimodal-rag-be/internal/entity"
)

// ChatSessionRepository is the turn store: session id -> ordered turns.
type ChatSessionRepository interface {
	// CreateIfAbsent never overwrites an existing record. Reports whether a record was created.
	CreateIfAbsent(ctx context.Context, sessionId string) (bool, error)
	// LoadHistory returns an empty slice when the session has no record.
	LoadHistory(ctx context.Context, sessionId string) ([]entity.Turn, error)
	// SaveHistory replaces the whole history, creating the record if needed.
	SaveHistory(ctx context.Context, sessionId string, turns []entity.Turn) error
	// FindOne returns nil, nil when the session does not exist.
	FindOne(ctx context.Context, sessionId string) (*entity.ChatSession, error)
	Delete(ctx context.Context, sessionId string) (bool, error)
	// ListIds is ordered newest first.
	ListIds(ctx context.Context) ([]string, error)
}
