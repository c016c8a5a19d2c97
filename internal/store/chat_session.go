package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"revot.app/chat/common/id"
	"revot.app/chat/internal/model"
)

type sessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore returns a SessionStore backed by the chat_sessions table.
func NewSessionStore(pool *pgxpool.Pool) SessionStore {
	return &sessionStore{pool: pool}
}

func (s *sessionStore) ListByUser(ctx context.Context, userID string) ([]model.ChatSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, created_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.ChatSession
	for rows.Next() {
		var cs model.ChatSession
		if err := rows.Scan(&cs.ID, &cs.UserID, &cs.Title, &cs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat session: %w", err)
		}
		sessions = append(sessions, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chat sessions: %w", err)
	}

	return sessions, nil
}

func (s *sessionStore) Create(ctx context.Context, userID string) (*model.ChatSession, error) {
	var cs model.ChatSession
	// Title falls back to the column default so the store, not the caller,
	// owns the "Nuevo Chat" naming.
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, user_id)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at`,
		id.New(), userID,
	).Scan(&cs.ID, &cs.UserID, &cs.Title, &cs.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating chat session: %w", err)
	}

	return &cs, nil
}

func (s *sessionStore) Rename(ctx context.Context, sessionID int64, title string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE chat_sessions SET title = $2 WHERE id = $1`,
		sessionID, title,
	)
	if err != nil {
		return fmt.Errorf("renaming chat session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sessionStore) Delete(ctx context.Context, sessionID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("deleting chat session: %w", err)
	}
	return nil
}
