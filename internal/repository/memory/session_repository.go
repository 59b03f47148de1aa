package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// ChatSessionRepository keeps turn history in process memory. Nothing survives a restart.
type ChatSessionRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

var _ contract.ChatSessionRepository = &ChatSessionRepository{}

func NewChatSessionRepository() *ChatSessionRepository {
	return &ChatSessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *ChatSessionRepository) get(sessionId string) (*entity.ChatSession, bool) {
	if x, found := r.cache.Get(sessionId); found {
		return x.(*entity.ChatSession), true
	}
	return nil, false
}

func (r *ChatSessionRepository) CreateIfAbsent(_ context.Context, sessionId string) (bool, error) {
	session := &entity.ChatSession{
		Id:        sessionId,
		History:   []entity.Turn{},
		CreatedAt: time.Now(),
	}
	// Add fails when the key is already present
	if err := r.cache.Add(sessionId, session, cache.NoExpiration); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *ChatSessionRepository) LoadHistory(_ context.Context, sessionId string) ([]entity.Turn, error) {
	session, ok := r.get(sessionId)
	if !ok {
		return []entity.Turn{}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Turn{}, session.History...), nil
}

func (r *ChatSessionRepository) SaveHistory(_ context.Context, sessionId string, turns []entity.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	session, ok := r.get(sessionId)
	if !ok {
		session = &entity.ChatSession{Id: sessionId, CreatedAt: now}
	}
	next := *session
	next.History = append([]entity.Turn{}, turns...)
	next.UpdatedAt = &now
	r.cache.Set(sessionId, &next, cache.NoExpiration)
	return nil
}

func (r *ChatSessionRepository) FindOne(_ context.Context, sessionId string) (*entity.ChatSession, error) {
	session, ok := r.get(sessionId)
	if !ok {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := *session
	out.History = append([]entity.Turn{}, session.History...)
	return &out, nil
}

func (r *ChatSessionRepository) Delete(_ context.Context, sessionId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.get(sessionId); !ok {
		return false, nil
	}
	r.cache.Delete(sessionId)
	return true, nil
}

func (r *ChatSessionRepository) ListIds(_ context.Context) ([]string, error) {
	items := r.cache.Items()
	sessions := make([]*entity.ChatSession, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, item.Object.(*entity.ChatSession))
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].Id < sessions[j].Id
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.Id
	}
	return ids, nil
}
