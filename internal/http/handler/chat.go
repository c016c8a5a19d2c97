package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"revot.app/chat/internal/controller"
	"revot.app/chat/internal/http/dto"
	"revot.app/chat/internal/model"
	"revot.app/chat/internal/store"
)

// Conversations is the slice of the conversation controller the handler needs.
type Conversations interface {
	User() *model.User
	RefreshSessions(ctx context.Context) []model.ChatSession
	CreateSession(ctx context.Context) (*model.ChatSession, error)
	RenameSession(ctx context.Context, sessionID int64, title string) error
	DeleteSession(ctx context.Context, sessionID int64) error
	Select(ctx context.Context, sessionID int64) []model.Message
	Deselect()
	Send(ctx context.Context, input string) ([]model.Message, bool)
	Messages() []model.Message
	CurrentSessionID() int64
	Loading() bool
	Sending() bool
}

type ChatHandler struct {
	conversations Conversations
}

func NewChatHandler(conversations Conversations) *ChatHandler {
	return &ChatHandler{conversations: conversations}
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	if h.conversations.User() == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	sessions := h.conversations.RefreshSessions(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"sessions": dto.ToSessionResponses(sessions)})
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	cs, err := h.conversations.CreateSession(c.Request.Context())
	if err != nil {
		if errors.Is(err, controller.ErrNotSignedIn) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, dto.CreateSessionResponse{
		Session:  dto.ToSessionResponse(*cs),
		Messages: dto.ToMessageResponses(h.conversations.Messages()),
	})
}

func (h *ChatHandler) RenameSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req dto.RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	if err := h.conversations.RenameSession(c.Request.Context(), sessionID, req.Title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rename session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "renamed"})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	// Deletion is confirmed client-side before this endpoint is called.
	if err := h.conversations.DeleteSession(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *ChatHandler) SelectSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	messages := h.conversations.Select(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, h.transcript(messages))
}

func (h *ChatHandler) Deselect(c *gin.Context) {
	h.conversations.Deselect()
	c.JSON(http.StatusOK, h.transcript(nil))
}

func (h *ChatHandler) GetTranscript(c *gin.Context) {
	c.JSON(http.StatusOK, h.transcript(h.conversations.Messages()))
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	appended, accepted := h.conversations.Send(c.Request.Context(), req.Content)
	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"appended": dto.ToMessageResponses(appended),
	})
}

func (h *ChatHandler) transcript(messages []model.Message) dto.TranscriptResponse {
	resp := dto.TranscriptResponse{
		Loading:  h.conversations.Loading(),
		Sending:  h.conversations.Sending(),
		Messages: dto.ToMessageResponses(messages),
	}
	if current := h.conversations.CurrentSessionID(); current != 0 {
		resp.SessionID = strconv.FormatInt(current, 10)
	}
	return resp
}

func (h *ChatHandler) sessionID(c *gin.Context) (int64, bool) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return 0, false
	}
	return sessionID, true
}
