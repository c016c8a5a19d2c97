package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"revot.app/chat/internal/model"
)

// Preferences is the slice of the prefs store the handler needs.
type Preferences interface {
	Theme() model.Theme
	SetTheme(theme model.Theme) error
	ToggleTheme() (model.Theme, error)
}

type PrefsHandler struct {
	prefs Preferences
}

func NewPrefsHandler(prefs Preferences) *PrefsHandler {
	return &PrefsHandler{prefs: prefs}
}

func (h *PrefsHandler) GetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": h.prefs.Theme()})
}

type setThemeRequest struct {
	Theme model.Theme `json:"theme" binding:"required"`
}

func (h *PrefsHandler) SetTheme(c *gin.Context) {
	var req setThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Theme.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be dark or light"})
		return
	}

	if err := h.prefs.SetTheme(req.Theme); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to persist theme", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save theme"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}

func (h *PrefsHandler) ToggleTheme(c *gin.Context) {
	theme, err := h.prefs.ToggleTheme()
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to persist theme", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save theme"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"theme": theme})
}
