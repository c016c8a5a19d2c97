package router

import (
	"github.com/gin-gonic/gin"

	"revot.app/chat/internal/http/handler"
)

func ChatRouter(group *gin.RouterGroup, h *handler.ChatHandler) {
	sessions := group.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.POST("", h.CreateSession)
		sessions.PATCH("/:id", h.RenameSession)
		sessions.DELETE("/:id", h.DeleteSession)
		sessions.POST("/:id/select", h.SelectSession)
	}

	group.DELETE("/selection", h.Deselect)
	group.GET("/messages", h.GetTranscript)
	group.POST("/messages", h.SendMessage)
}
