// Package redis stores turn history in Redis so several API instances can share sessions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/mapper"
	"multimodal-rag-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "rag:session:"
	sessionIndexKey  = "rag:sessions" // sorted set scored by creation time

	fieldHistory   = "history"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

type ChatSessionRepository struct {
	rdb *redis.Client
}

var _ contract.ChatSessionRepository = &ChatSessionRepository{}

func NewChatSessionRepository(rdb *redis.Client) *ChatSessionRepository {
	return &ChatSessionRepository{rdb: rdb}
}

func sessionKey(sessionId string) string {
	return sessionKeyPrefix + sessionId
}

func (r *ChatSessionRepository) CreateIfAbsent(ctx context.Context, sessionId string) (bool, error) {
	now := time.Now().UnixNano()
	created, err := r.rdb.HSetNX(ctx, sessionKey(sessionId), fieldCreatedAt, now).Result()
	if err != nil {
		return false, fmt.Errorf("redis create session: %w", err)
	}
	if !created {
		return false, nil
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, sessionKey(sessionId), fieldHistory, "[]")
		pipe.HSetNX(ctx, sessionKey(sessionId), fieldUpdatedAt, now)
		pipe.ZAddNX(ctx, sessionIndexKey, redis.Z{Score: float64(now), Member: sessionId})
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("redis create session: %w", err)
	}
	return true, nil
}

func (r *ChatSessionRepository) LoadHistory(ctx context.Context, sessionId string) ([]entity.Turn, error) {
	raw, err := r.rdb.HGet(ctx, sessionKey(sessionId), fieldHistory).Bytes()
	if errors.Is(err, redis.Nil) {
		return []entity.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis load history: %w", err)
	}
	return mapper.DecodeHistory(raw)
}

func (r *ChatSessionRepository) SaveHistory(ctx context.Context, sessionId string, turns []entity.Turn) error {
	raw, err := mapper.EncodeHistory(turns)
	if err != nil {
		return err
	}

	now := time.Now().UnixNano()
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, sessionKey(sessionId), fieldCreatedAt, now)
		pipe.HSet(ctx, sessionKey(sessionId), fieldHistory, string(raw), fieldUpdatedAt, now)
		pipe.ZAddNX(ctx, sessionIndexKey, redis.Z{Score: float64(now), Member: sessionId})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save history: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) FindOne(ctx context.Context, sessionId string) (*entity.ChatSession, error) {
	fields, err := r.rdb.HGetAll(ctx, sessionKey(sessionId)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis find session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	history, err := mapper.DecodeHistory([]byte(fields[fieldHistory]))
	if err != nil {
		return nil, err
	}

	session := &entity.ChatSession{
		Id:        sessionId,
		History:   history,
		CreatedAt: parseNanos(fields[fieldCreatedAt]),
	}
	if v, ok := fields[fieldUpdatedAt]; ok {
		updated := parseNanos(v)
		session.UpdatedAt = &updated
	}
	return session, nil
}

func (r *ChatSessionRepository) Delete(ctx context.Context, sessionId string) (bool, error) {
	var deleted *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, sessionKey(sessionId))
		pipe.ZRem(ctx, sessionIndexKey, sessionId)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis delete session: %w", err)
	}
	return deleted.Val() > 0, nil
}

func (r *ChatSessionRepository) ListIds(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.ZRevRange(ctx, sessionIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list sessions: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func parseNanos(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}
