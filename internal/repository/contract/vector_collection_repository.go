package contract

import (
	"context"
)

type VectorCollectionRepository interface {
	CreateIfAbsent(ctx context.Context, sessionId string) error
	Exists(ctx context.Context, sessionId string) (bool, error)
	Delete(ctx context.Context, sessionId string) (bool, error)
}
