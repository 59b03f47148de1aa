package ingest

import (
	"github.com/google/uuid"
)

// IDGenerator produces chunk ids that are unique across sessions and ingestions.
type IDGenerator interface {
	NewId(source string) string
}

// UUIDGenerator yields "<source>_<uuid v4>".
type UUIDGenerator struct{}

func (UUIDGenerator) NewId(source string) string {
	return source + "_" + uuid.NewString()
}
