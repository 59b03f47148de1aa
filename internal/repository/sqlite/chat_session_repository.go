// Package sqlite stores turn history in a single local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/mapper"
	"multimodal-rag-be/internal/repository/contract"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	history    TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

type ChatSessionRepository struct {
	db   *sql.DB
	path string
}

var _ contract.ChatSessionRepository = &ChatSessionRepository{}

// NewChatSessionRepository opens (or creates) the database at path.
func NewChatSessionRepository(path string) (*ChatSessionRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}

	return &ChatSessionRepository{db: db, path: path}, nil
}

func (r *ChatSessionRepository) Close() error {
	return r.db.Close()
}

func (r *ChatSessionRepository) Path() string {
	return r.path
}

func (r *ChatSessionRepository) CreateIfAbsent(ctx context.Context, sessionId string) (bool, error) {
	now := time.Now().UnixNano()
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, history, created_at, updated_at) VALUES (?, '[]', ?, ?)`,
		sessionId, now, now)
	if err != nil {
		return false, fmt.Errorf("creating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("creating session: %w", err)
	}
	return n > 0, nil
}

func (r *ChatSessionRepository) LoadHistory(ctx context.Context, sessionId string) ([]entity.Turn, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT history FROM sessions WHERE session_id = ?`, sessionId).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []entity.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return mapper.DecodeHistory([]byte(raw))
}

func (r *ChatSessionRepository) SaveHistory(ctx context.Context, sessionId string, turns []entity.Turn) error {
	raw, err := mapper.EncodeHistory(turns)
	if err != nil {
		return err
	}

	now := time.Now().UnixNano()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, history, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET history = excluded.history, updated_at = excluded.updated_at`,
		sessionId, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) FindOne(ctx context.Context, sessionId string) (*entity.ChatSession, error) {
	var (
		raw                  string
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT history, created_at, updated_at FROM sessions WHERE session_id = ?`, sessionId).
		Scan(&raw, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}

	history, err := mapper.DecodeHistory([]byte(raw))
	if err != nil {
		return nil, err
	}
	updated := time.Unix(0, updatedAt)
	return &entity.ChatSession{
		Id:        sessionId,
		History:   history,
		CreatedAt: time.Unix(0, createdAt),
		UpdatedAt: &updated,
	}, nil
}

func (r *ChatSessionRepository) Delete(ctx context.Context, sessionId string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionId)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	return n > 0, nil
}

func (r *ChatSessionRepository) ListIds(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY created_at DESC, session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
