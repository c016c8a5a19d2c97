package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"revot.app/chat/internal/model"
)

// storedMessage is the nested JSONB payload the automation service writes
// into n8n_chat_histories. Anything that is not tagged "human" is treated
// as assistant output.
type storedMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type historyStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore returns a HistoryStore backed by the n8n_chat_histories table.
func NewHistoryStore(pool *pgxpool.Pool) HistoryStore {
	return &historyStore{pool: pool}
}

func (s *historyStore) ListBySession(ctx context.Context, sessionID int64) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, message
		FROM n8n_chat_histories
		WHERE session_id = $1
		ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing message history: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var (
			rowID int64
			sid   int64
			raw   []byte
		)
		if err := rows.Scan(&rowID, &sid, &raw); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}

		msg, err := toMessage(rowID, sid, raw)
		if err != nil {
			return nil, fmt.Errorf("decoding history row %d: %w", rowID, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading message history: %w", err)
	}

	return messages, nil
}

// toMessage converts a stored history row into the display model.
func toMessage(rowID, sessionID int64, raw []byte) (model.Message, error) {
	var stored storedMessage
	if err := json.Unmarshal(raw, &stored); err != nil {
		return model.Message{}, err
	}

	role := model.RoleAssistant
	if stored.Type == "human" {
		role = model.RoleUser
	}

	return model.Message{
		ID:        rowID,
		SessionID: sessionID,
		Role:      role,
		Content:   stored.Content,
	}, nil
}
