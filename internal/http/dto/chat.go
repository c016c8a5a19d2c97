package dto

import (
	"strconv"
	"time"

	"revot.app/chat/internal/model"
)

type SessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageResponse struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CreateSessionResponse struct {
	Session  SessionResponse   `json:"session"`
	Messages []MessageResponse `json:"messages"`
}

type RenameSessionRequest struct {
	Title string `json:"title" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type TranscriptResponse struct {
	SessionID string            `json:"session_id,omitempty"`
	Loading   bool              `json:"loading"`
	Sending   bool              `json:"sending"`
	Messages  []MessageResponse `json:"messages"`
}

func ToSessionResponse(cs model.ChatSession) SessionResponse {
	return SessionResponse{
		ID:        strconv.FormatInt(cs.ID, 10),
		Title:     cs.Title,
		CreatedAt: cs.CreatedAt,
	}
}

func ToSessionResponses(sessions []model.ChatSession) []SessionResponse {
	out := make([]SessionResponse, len(sessions))
	for i, cs := range sessions {
		out[i] = ToSessionResponse(cs)
	}
	return out
}

func ToMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:      strconv.FormatInt(m.ID, 10),
		Role:    string(m.Role),
		Content: m.Content,
	}
}

func ToMessageResponses(messages []model.Message) []MessageResponse {
	out := make([]MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = ToMessageResponse(m)
	}
	return out
}
