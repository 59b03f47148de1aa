package session

import (
	"context"
	"fmt"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/rag/history"
	"multimodal-rag-be/pkg/rag/index"

	"github.com/google/uuid"
)

// Manager owns the session lifecycle: the turn record and the vector collection.
type Manager struct {
	store     contract.ChatSessionRepository
	registry  *index.Registry
	memory    *history.Manager
	publisher events.Publisher
	logger    logger.ILogger
	newId     func() string
}

func NewManager(
	store contract.ChatSessionRepository,
	registry *index.Registry,
	memory *history.Manager,
	publisher events.Publisher,
	log logger.ILogger,
) *Manager {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Manager{
		store:     store,
		registry:  registry,
		memory:    memory,
		publisher: publisher,
		logger:    log,
		newId:     func() string { return uuid.New().String() },
	}
}

// Create issues a fresh session token with an empty history and an open collection.
func (m *Manager) Create(ctx context.Context) (string, error) {
	sessionId := m.newId()

	if _, err := m.store.CreateIfAbsent(ctx, sessionId); err != nil {
		return "", fmt.Errorf("create session record: %w", err)
	}
	if _, err := m.registry.Ensure(ctx, sessionId); err != nil {
		return "", err
	}

	m.logger.Info("SESSION", "Session created", map[string]interface{}{
		"session_id": sessionId,
	})
	m.publish(ctx, events.SessionCreated(sessionId))
	return sessionId, nil
}

// Delete removes the turn record and purges the vector collection.
// found is true when either existed.
func (m *Manager) Delete(ctx context.Context, sessionId string) (bool, error) {
	unlock, err := m.memory.Lock(ctx, sessionId)
	if err != nil {
		return false, err
	}
	defer unlock()

	recordFound, err := m.store.Delete(ctx, sessionId)
	if err != nil {
		return false, fmt.Errorf("delete session record: %w", err)
	}
	indexFound, err := m.registry.Drop(ctx, sessionId)
	if err != nil {
		return recordFound, err
	}

	found := recordFound || indexFound
	m.logger.Info("SESSION", "Session deleted", map[string]interface{}{
		"session_id":   sessionId,
		"found":        found,
		"record_found": recordFound,
		"index_found":  indexFound,
	})
	m.publish(ctx, events.SessionDeleted(sessionId, found))
	return found, nil
}

// Lock serializes work on one session against Delete. The caller must run the returned unlock.
func (m *Manager) Lock(ctx context.Context, sessionId string) (func(), error) {
	return m.memory.Lock(ctx, sessionId)
}

// List returns session ids, newest first.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ids, err := m.store.ListIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

func (m *Manager) History(ctx context.Context, sessionId string) ([]entity.Turn, bool, error) {
	return m.memory.History(ctx, sessionId)
}

// Ingested announces a finished ingestion.
func (m *Manager) Ingested(ctx context.Context, sessionId, source string, chunks int) {
	m.publish(ctx, events.DocumentIngested(sessionId, source, chunks))
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("SESSION", "Failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}
