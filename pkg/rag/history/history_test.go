package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turnsOf(n int) []entity.Turn {
	out := make([]entity.Turn, n)
	for i := range out {
		role := entity.TurnRoleUser
		if i%2 == 1 {
			role = entity.TurnRoleAssistant
		}
		out[i] = entity.Turn{Role: role, Content: fmt.Sprintf("t%d", i)}
	}
	return out
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name     string
		turns    int
		maxTurns int
		want     []string
	}{
		{name: "under limit", turns: 3, maxTurns: 2, want: []string{"t0", "t1", "t2"}},
		{name: "at limit", turns: 4, maxTurns: 2, want: []string{"t0", "t1", "t2", "t3"}},
		{name: "over limit keeps newest", turns: 7, maxTurns: 2, want: []string{"t3", "t4", "t5", "t6"}},
		{name: "disabled", turns: 5, maxTurns: 0, want: []string{"t0", "t1", "t2", "t3", "t4"}},
		{name: "empty", turns: 0, maxTurns: 3, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := turnsOf(tt.turns)
			got := Trim(in, tt.maxTurns)

			contents := make([]string, len(got))
			for i, turn := range got {
				contents[i] = turn.Content
			}
			assert.Equal(t, tt.want, contents)
			assert.Len(t, in, tt.turns, "input must not be mutated")
		})
	}
}

func TestConversation_RoundTripIsTrimmed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChatSessionRepository()
	m := NewManager(store, 2, logger.NewNop())

	conv, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, conv.AppendUser(ctx, fmt.Sprintf("q%d", i)))
		require.NoError(t, conv.AppendAssistant(ctx, fmt.Sprintf("a%d", i)))
	}

	reloaded, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, conv.Turns(), reloaded.Turns())
	assert.Equal(t, []entity.Turn{
		{Role: entity.TurnRoleUser, Content: "q1"},
		{Role: entity.TurnRoleAssistant, Content: "a1"},
		{Role: entity.TurnRoleUser, Content: "q2"},
		{Role: entity.TurnRoleAssistant, Content: "a2"},
	}, reloaded.Turns())
}

func TestManager_LoadNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChatSessionRepository()
	existing := []entity.Turn{{Role: entity.TurnRoleUser, Content: "earlier"}}
	require.NoError(t, store.SaveHistory(ctx, "s1", existing))

	m := NewManager(store, 6, logger.NewNop())
	conv, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, existing, conv.Turns())
}

func TestManager_History(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewChatSessionRepository(), 6, logger.NewNop())

	turns, found, err := m.History(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, turns)

	conv, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, conv.AppendUser(ctx, "hello"))

	turns, found, err = m.History(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, turns, 1)
}

type failingStore struct {
	*memory.ChatSessionRepository
}

func (failingStore) SaveHistory(ctx context.Context, sessionId string, turns []entity.Turn) error {
	return errors.New("disk full")
}

func TestConversation_FailedSaveKeepsState(t *testing.T) {
	ctx := context.Background()
	m := NewManager(failingStore{memory.NewChatSessionRepository()}, 6, logger.NewNop())

	conv, err := m.Load(ctx, "s1")
	require.NoError(t, err)

	err = conv.AppendUser(ctx, "hello")
	require.Error(t, err)
	assert.Empty(t, conv.Turns())
}

func TestRenderContext(t *testing.T) {
	turns := []entity.Turn{
		{Role: entity.TurnRoleUser, Content: "What is on page 2?"},
		{Role: entity.TurnRoleAssistant, Content: "A table."},
	}
	assert.Equal(t, "User: What is on page 2?\nAssistant: A table.", Render(turns))
	assert.Equal(t, "", Render(nil))
}

func TestManager_LockSerialisesSameSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewChatSessionRepository(), 6, logger.NewNop())

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, "s1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, m.locks.size())
}

func TestManager_LockIndependentSessionsAndCancel(t *testing.T) {
	m := NewManager(memory.NewChatSessionRepository(), 6, logger.NewNop())

	unlockA, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := m.Lock(context.Background(), "b")
	require.NoError(t, err)
	unlockB()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
