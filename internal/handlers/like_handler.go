package handlers

import (
	"net/http"

	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles like-related HTTP requests
type LikeHandler struct {
	content *services.ContentService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(content *services.ContentService) *LikeHandler {
	return &LikeHandler{content: content}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/like", h.ToggleLike)
}

// ToggleLike likes the post, or unlikes it when already liked
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	result, err := h.content.ToggleLike(c.Request().Context(), currentUserID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, result)
}
