package handlers

import (
	"net/http"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comment-related HTTP requests
type CommentHandler struct {
	content *services.ContentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(content *services.ContentService) *CommentHandler {
	return &CommentHandler{content: content}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.CreateComment)
	g.GET("/posts/:id/comments", h.GetCommentsByPostID)
	g.DELETE("/posts/:id/comments/:commentId", h.DeleteComment)
}

func (h *CommentHandler) CreateComment(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.content.AddComment(c.Request().Context(), currentUserID, c.Param("id"), req.Text)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusCreated, comment)
}

func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	comments, err := h.content.ListComments(c.Request().Context(), currentUserID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"comments": comments})
}

// DeleteComment lets the comment's author or the post's owner remove a comment
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	commentID, err := parseIDParam(c, "commentId", "comment")
	if err != nil {
		return err
	}
	if err := h.content.DeleteComment(c.Request().Context(), currentUserID, c.Param("id"), commentID); err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}
