package history

import (
	"context"
	"fmt"
	"strings"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/contract"
)

const DefaultMaxTurns = 6

// Manager loads conversations from the turn store and serialises work per session.
type Manager struct {
	store    contract.ChatSessionRepository
	maxTurns int
	locks    *sessionLocks
	logger   logger.ILogger
}

func NewManager(store contract.ChatSessionRepository, maxTurns int, log logger.ILogger) *Manager {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Manager{
		store:    store,
		maxTurns: maxTurns,
		locks:    newSessionLocks(),
		logger:   log,
	}
}

func (m *Manager) MaxTurns() int {
	return m.maxTurns
}

// Lock blocks until the session is free or ctx is done. Call the returned func to release.
func (m *Manager) Lock(ctx context.Context, sessionId string) (func(), error) {
	return m.locks.acquire(ctx, sessionId)
}

// Load reads the session's turns, creating an empty record only if none exists.
func (m *Manager) Load(ctx context.Context, sessionId string) (*Conversation, error) {
	created, err := m.store.CreateIfAbsent(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("create conversation record: %w", err)
	}
	if created {
		m.logger.Debug("MEMORY", "Created empty conversation record", map[string]interface{}{
			"session_id": sessionId,
		})
	}

	turns, err := m.store.LoadHistory(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	return &Conversation{
		sessionId: sessionId,
		turns:     Trim(turns, m.maxTurns),
		store:     m.store,
		maxTurns:  m.maxTurns,
	}, nil
}

// History returns the persisted turns without creating a record.
func (m *Manager) History(ctx context.Context, sessionId string) ([]entity.Turn, bool, error) {
	session, err := m.store.FindOne(ctx, sessionId)
	if err != nil {
		return nil, false, err
	}
	if session == nil {
		return []entity.Turn{}, false, nil
	}
	return session.History, true, nil
}

// Conversation is one session's bounded turn history. Every append is persisted
// before it becomes visible; a failed save leaves the in-memory state unchanged.
type Conversation struct {
	sessionId string
	turns     []entity.Turn
	store     contract.ChatSessionRepository
	maxTurns  int
}

func (c *Conversation) SessionId() string {
	return c.sessionId
}

func (c *Conversation) Turns() []entity.Turn {
	return append([]entity.Turn{}, c.turns...)
}

func (c *Conversation) AppendUser(ctx context.Context, text string) error {
	return c.append(ctx, entity.Turn{Role: entity.TurnRoleUser, Content: text})
}

func (c *Conversation) AppendAssistant(ctx context.Context, text string) error {
	return c.append(ctx, entity.Turn{Role: entity.TurnRoleAssistant, Content: text})
}

func (c *Conversation) append(ctx context.Context, turn entity.Turn) error {
	next := make([]entity.Turn, 0, len(c.turns)+1)
	next = append(next, c.turns...)
	next = Trim(append(next, turn), c.maxTurns)

	if err := c.store.SaveHistory(ctx, c.sessionId, next); err != nil {
		return fmt.Errorf("save %s turn: %w", turn.Role, err)
	}
	c.turns = next
	return nil
}

// RenderContext flattens the turns into "User: ..." / "Assistant: ..." lines.
// It returns "" for an empty conversation.
func (c *Conversation) RenderContext() string {
	return Render(c.turns)
}

func Render(turns []entity.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, roleLabel(t.Role)+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

func roleLabel(role entity.TurnRole) string {
	switch role {
	case entity.TurnRoleUser:
		return "User"
	case entity.TurnRoleAssistant:
		return "Assistant"
	}
	r := string(role)
	if r == "" {
		return "Unknown"
	}
	return strings.ToUpper(r[:1]) + r[1:]
}
