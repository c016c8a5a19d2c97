package router

import (
	"github.com/gin-gonic/gin"

	"revot.app/chat/internal/http/handler"
)

type Deps struct {
	Identity      handler.IdentityGateway
	Conversations handler.Conversations
	Preferences   handler.Preferences
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authHandler := handler.NewAuthHandler(deps.Identity)
	AuthRouter(router.Group("/auth"), authHandler)

	v1 := router.Group("/api/v1")
	{
		chatHandler := handler.NewChatHandler(deps.Conversations)
		ChatRouter(v1, chatHandler)

		prefsHandler := handler.NewPrefsHandler(deps.Preferences)
		PrefsRouter(v1.Group("/preferences"), prefsHandler)
	}
}
