package handlers

import (
	"net/http"

	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// SavedPostHandler handles bookmark HTTP requests
type SavedPostHandler struct {
	content *services.ContentService
}

// NewSavedPostHandler creates a new SavedPostHandler
func NewSavedPostHandler(content *services.ContentService) *SavedPostHandler {
	return &SavedPostHandler{content: content}
}

// RegisterSavedPostRoutes registers saved post routes
func (h *SavedPostHandler) RegisterSavedPostRoutes(g *echo.Group) {
	g.POST("/posts/:id/save", h.ToggleSave)
	g.GET("/saved-posts", h.GetSavedPosts)
}

func (h *SavedPostHandler) ToggleSave(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	saved, err := h.content.ToggleSave(c.Request().Context(), currentUserID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"saved": saved})
}

func (h *SavedPostHandler) GetSavedPosts(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	posts, err := h.content.SavedPosts(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"posts": posts})
}
