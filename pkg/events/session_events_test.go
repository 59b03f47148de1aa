package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionEvents(t *testing.T) {
	created := SessionCreated("s1")
	assert.Equal(t, "session.created", created.EventType())
	assert.Equal(t, "s1", created.Payload()["session_id"])
	assert.False(t, created.Timestamp().IsZero())

	ingested := DocumentIngested("s1", "doc.pdf", 12)
	assert.Equal(t, TypeDocumentIngested, ingested.EventType())
	assert.Equal(t, 12, ingested.Payload()["chunks"])

	deleted := SessionDeleted("s1", true)
	assert.Equal(t, true, deleted.Payload()["found"])

	assert.NoError(t, NopPublisher{}.Publish(context.Background(), deleted))
}
