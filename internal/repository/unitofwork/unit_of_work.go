package unitofwork

import (
	"context"

	"multimodal-rag-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	VectorCollectionRepository() contract.VectorCollectionRepository
	DocumentChunkRepository() contract.DocumentChunkRepository
}
