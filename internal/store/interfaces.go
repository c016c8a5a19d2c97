package store

import (
	"context"
	"errors"

	"revot.app/chat/internal/model"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// SessionStore defines the contract for chat session data access.
// All reads are scoped to a single owner (the identity provider user id).
type SessionStore interface {
	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.ChatSession, error)
	// Create inserts a session with a store-assigned id and default title.
	Create(ctx context.Context, userID string) (*model.ChatSession, error)
	Rename(ctx context.Context, id int64, title string) error
	Delete(ctx context.Context, id int64) error
}

// HistoryStore defines read access to a session's message transcript.
// Rows are written out-of-band by the automation service; this client
// only ever reads them.
type HistoryStore interface {
	// ListBySession returns the session's messages ascending by row id.
	ListBySession(ctx context.Context, sessionID int64) ([]model.Message, error)
}
