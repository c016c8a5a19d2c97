package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"revot.app/chat/internal/auth"
	"revot.app/chat/internal/http/dto"
	"revot.app/chat/internal/model"
)

// IdentityGateway is the slice of the auth gateway the handler needs.
type IdentityGateway interface {
	CurrentUser() *model.User
	SignIn(ctx context.Context, email, password string) (*model.User, error)
	SignUp(ctx context.Context, email, password string) (*model.User, error)
	SignOut(ctx context.Context) error
}

type AuthHandler struct {
	gateway IdentityGateway
}

func NewAuthHandler(gateway IdentityGateway) *AuthHandler {
	return &AuthHandler{gateway: gateway}
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.gateway.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			// Inline text for the login form; global state is untouched.
			c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Message})
			return
		}
		slog.ErrorContext(ctx, "sign-in failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}

	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.gateway.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": authErr.Message})
			return
		}
		slog.ErrorContext(ctx, "sign-up failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign up"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserResponse(user))
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.gateway.SignOut(ctx); err != nil {
		slog.ErrorContext(ctx, "sign-out failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user := h.gateway.CurrentUser()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}
