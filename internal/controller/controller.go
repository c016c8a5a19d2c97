// Package controller owns the client-side view of one user's conversations:
// the session list, the active selection, and the displayed transcript. It
// reconciles optimistic local updates with the remote store and serializes
// sends so at most one webhook round trip is outstanding.
package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"revot.app/chat/common/id"
	"revot.app/chat/common/logger"
	"revot.app/chat/internal/model"
	"revot.app/chat/internal/reply"
	"revot.app/chat/internal/store"
)

// sendFailureNotice is appended as an assistant message when the webhook
// round trip fails, so a send always has a visible outcome.
const sendFailureNotice = "Error comunicando con el agente. Por favor inténtalo de nuevo."

// Controller is the single owner of conversation UI state. All mutation
// funnels through its lock; remote round trips release the lock and
// revalidate the selection before applying results, so a fetch or reply
// that resolves after the user has moved on is discarded instead of
// bleeding into another session.
type Controller struct {
	sessions store.SessionStore
	history  store.HistoryStore
	replies  reply.Gateway
	cache    store.Invalidator
	clock    func() int64
	logger   *slog.Logger

	mu          sync.Mutex
	user        *model.User
	sessionList []model.ChatSession
	currentID   int64 // 0 = no selection
	messages    []model.Message
	loading     bool
	sending     bool
	fetchSeq    uint64 // bumped on every selection change; stale results carry an older value
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the local id source for optimistic messages.
// Ids must be strictly increasing.
func WithClock(clock func() int64) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithInvalidator wires a history cache to drop after send round trips,
// since the automation service appends transcript rows out-of-band.
func WithInvalidator(inv store.Invalidator) Option {
	return func(c *Controller) { c.cache = inv }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a Controller with no user and no selection.
func New(sessions store.SessionStore, history store.HistoryStore, replies reply.Gateway, opts ...Option) *Controller {
	c := &Controller{
		sessions: sessions,
		history:  history,
		replies:  replies,
		clock:    id.New,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetUser swaps the signed-in identity. A nil user (sign-out, token
// expiry) tears down all session and message state; a new user starts
// from a clean slate. Wire this to the identity gateway's subscription.
func (c *Controller) SetUser(user *model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.user = user
	c.sessionList = nil
	c.currentID = 0
	c.messages = nil
	c.loading = false
	c.sending = false
	c.fetchSeq++ // any in-flight fetch now resolves stale
}

// User returns the current identity, or nil when signed out.
func (c *Controller) User() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Sessions returns the in-memory session list, newest first.
func (c *Controller) Sessions() []model.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChatSession(nil), c.sessionList...)
}

// Messages returns the displayed transcript for the active selection.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Message(nil), c.messages...)
}

// CurrentSessionID returns the active selection, 0 when none.
func (c *Controller) CurrentSessionID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

// Loading reports whether a history fetch for the active selection is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Sending reports whether a send round trip is in flight.
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// RefreshSessions reloads the session list from the store. On failure the
// prior list is left untouched and the error is only logged; a flaky store
// must never blank out what the user already sees.
func (c *Controller) RefreshSessions(ctx context.Context) []model.ChatSession {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "chat.controller"})

	c.mu.Lock()
	user := c.user
	c.mu.Unlock()

	if user == nil {
		return nil
	}

	sessions, err := c.sessions.ListByUser(ctx, user.ID)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to fetch sessions", "error", err, "user_id", user.ID)
		return c.Sessions()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || c.user.ID != user.ID {
		// Identity changed while the list was in flight.
		return nil
	}
	c.sessionList = sessions
	return append([]model.ChatSession(nil), c.sessionList...)
}

// CreateSession creates a session, prepends it to the list and selects it.
// No local change is applied when the store rejects the create.
func (c *Controller) CreateSession(ctx context.Context) (*model.ChatSession, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "chat.controller"})

	c.mu.Lock()
	user := c.user
	c.mu.Unlock()

	if user == nil {
		return nil, ErrNotSignedIn
	}

	cs, err := c.sessions.Create(ctx, user.ID)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to create session", "error", err, "user_id", user.ID)
		return nil, err
	}

	c.mu.Lock()
	c.sessionList = append([]model.ChatSession{*cs}, c.sessionList...)
	c.mu.Unlock()

	c.Select(ctx, cs.ID)
	return cs, nil
}

// RenameSession updates the title remotely, then in place locally. The
// list order never changes on rename.
func (c *Controller) RenameSession(ctx context.Context, sessionID int64, title string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "chat.controller", ChatSessionID: logger.Ptr(sessionID)})

	if err := c.sessions.Rename(ctx, sessionID, title); err != nil {
		c.logger.ErrorContext(ctx, "failed to rename session", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.sessionList {
		if c.sessionList[i].ID == sessionID {
			c.sessionList[i].Title = title
			break
		}
	}
	return nil
}

// DeleteSession removes the session remotely, then locally. Deleting the
// active selection clears it and empties the transcript.
func (c *Controller) DeleteSession(ctx context.Context, sessionID int64) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "chat.controller", ChatSessionID: logger.Ptr(sessionID)})

	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		c.logger.ErrorContext(ctx, "failed to delete session", "error", err)
		return err
	}

	c.invalidateHistory(ctx, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.sessionList[:0]
	for _, cs := range c.sessionList {
		if cs.ID != sessionID {
			kept = append(kept, cs)
		}
	}
	c.sessionList = kept

	if c.currentID == sessionID {
		c.currentID = 0
		c.messages = nil
		c.loading = false
		c.fetchSeq++
	}
	return nil
}

// Select makes sessionID the active selection and loads its history.
// Selecting the already-selected session is a no-op. The transcript is
// cleared immediately; fetch results are applied only if the selection is
// still the fetch's target when it resolves. Fetch failure converges to an
// empty transcript, never an error.
func (c *Controller) Select(ctx context.Context, sessionID int64) []model.Message {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "chat.controller", ChatSessionID: logger.Ptr(sessionID)})
	sc := logger.StartSpan(ctx, "chat.select")
	defer sc.End()
	ctx = sc.Context()

	c.mu.Lock()
	if sessionID == c.currentID {
		defer c.mu.Unlock()
		return append([]model.Message(nil), c.messages...)
	}

	c.currentID = sessionID
	c.messages = nil
	c.loading = true
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	messages, err := c.history.ListBySession(ctx, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetchSeq != seq || c.currentID != sessionID {
		// The user moved on while the fetch was in flight; applying it now
		// would bleed one session's transcript into another.
		c.logger.DebugContext(ctx, "discarding stale history fetch")
		return append([]model.Message(nil), c.messages...)
	}

	c.loading = false
	if err != nil {
		sc.RecordError(err)
		c.logger.ErrorContext(ctx, "failed to fetch history", "error", err)
		c.messages = nil
		return nil
	}

	c.messages = messages
	return append([]model.Message(nil), c.messages...)
}

// Deselect clears the active selection and the transcript.
func (c *Controller) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentID = 0
	c.messages = nil
	c.loading = false
	c.fetchSeq++
}

// Send runs the optimistic send protocol:
//
//	append user message -> webhook round trip -> append assistant reply,
//	or the failure notice when the round trip fails.
//
// Preconditions (non-empty input after trimming, a selection, no history
// fetch or send in flight) are silent no-ops, reported by the false return.
// Sends are rejected while loading because the fetch resolution replaces
// the transcript wholesale and would erase an optimistic append. The
// in-flight flag is cleared on every path, so one failure never blocks the
// next send.
func (c *Controller) Send(ctx context.Context, input string) ([]model.Message, bool) {
	trimmed := strings.TrimSpace(input)

	c.mu.Lock()
	if trimmed == "" || c.sending || c.loading || c.currentID == 0 {
		c.mu.Unlock()
		return nil, false
	}

	target := c.currentID
	userMsg := model.Message{
		ID:        c.clock(),
		SessionID: target,
		Role:      model.RoleUser,
		Content:   trimmed,
	}
	c.messages = append(c.messages, userMsg)
	c.sending = true
	c.mu.Unlock()

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "chat.controller", ChatSessionID: logger.Ptr(target)})
	sc := logger.StartSpan(ctx, "chat.send")
	defer sc.End()
	ctx = sc.Context()

	text, err := c.replies.Send(ctx, target, trimmed)
	if err != nil {
		sc.RecordError(err)
		c.logger.ErrorContext(ctx, "webhook send failed", "error", err, "input", logger.Truncate(trimmed, 120))
		text = sendFailureNotice
	} else {
		// The automation service persisted new transcript rows we cannot see.
		c.invalidateHistory(ctx, target)
	}

	assistantMsg := model.Message{
		ID:        c.clock(),
		SessionID: target,
		Role:      model.RoleAssistant,
		Content:   text,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sending = false

	if c.currentID != target {
		c.logger.DebugContext(ctx, "discarding reply for deselected session")
		return nil, true
	}

	c.messages = append(c.messages, assistantMsg)
	return []model.Message{userMsg, assistantMsg}, true
}

func (c *Controller) invalidateHistory(ctx context.Context, sessionID int64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, sessionID); err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate history cache", "error", err, "chat_session_id", sessionID)
	}
}
