package handlers

import (
	"net/http"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	content *services.ContentService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(content *services.ContentService) *PostHandler {
	return &PostHandler{content: content}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// CreatePost creates a post authored by the current user
func (h *PostHandler) CreatePost(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.content.CreatePost(c.Request().Context(), currentUserID, req)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	post, err := h.content.GetPost(c.Request().Context(), currentUserID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, post)
}

// DeletePost deletes one of the current user's posts
func (h *PostHandler) DeletePost(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.content.DeletePost(c.Request().Context(), currentUserID, c.Param("id")); err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}
