package events

import "time"

const (
	TypeSessionCreated   = "session.created"
	TypeDocumentIngested = "document.ingested"
	TypeSessionDeleted   = "session.deleted"
)

func SessionCreated(sessionId string) Event {
	return BaseEvent{
		Type:       TypeSessionCreated,
		Data:       map[string]interface{}{"session_id": sessionId},
		OccurredAt: time.Now(),
	}
}

func DocumentIngested(sessionId, source string, chunks int) Event {
	return BaseEvent{
		Type: TypeDocumentIngested,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"source":     source,
			"chunks":     chunks,
		},
		OccurredAt: time.Now(),
	}
}

func SessionDeleted(sessionId string, found bool) Event {
	return BaseEvent{
		Type: TypeSessionDeleted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"found":      found,
		},
		OccurredAt: time.Now(),
	}
}
