package router

import (
	"github.com/gin-gonic/gin"

	"revot.app/chat/internal/http/handler"
)

func PrefsRouter(group *gin.RouterGroup, h *handler.PrefsHandler) {
	group.GET("/theme", h.GetTheme)
	group.PUT("/theme", h.SetTheme)
	group.POST("/theme/toggle", h.ToggleTheme)
}
