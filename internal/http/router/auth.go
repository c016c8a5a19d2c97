package router

import (
	"github.com/gin-gonic/gin"

	"revot.app/chat/internal/http/handler"
)

func AuthRouter(group *gin.RouterGroup, h *handler.AuthHandler) {
	group.POST("/signin", h.SignIn)
	group.POST("/signup", h.SignUp)
	group.POST("/signout", h.SignOut)
	group.GET("/me", h.Me)
}
