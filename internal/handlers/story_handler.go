package handlers

import (
	"net/http"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	content       *services.ContentService
	visibility    *services.VisibilityService
	conversations *services.ConversationService
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(content *services.ContentService, visibility *services.VisibilityService, conversations *services.ConversationService) *StoryHandler {
	return &StoryHandler{
		content:       content,
		visibility:    visibility,
		conversations: conversations,
	}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.GET("/stories", h.GetStoryFeed)
	g.POST("/stories", h.CreateStory)
	g.GET("/users/:id/stories", h.GetUserStories)
	g.POST("/stories/:id/view", h.ViewStory)
	g.POST("/stories/:id/reply", h.ReplyToStory)
	g.DELETE("/stories/:id", h.DeleteStory)
}

// GetStoryFeed returns live stories from the accounts the current user follows
func (h *StoryHandler) GetStoryFeed(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	stories, err := h.visibility.StoryFeed(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"stories": stories})
}

func (h *StoryHandler) CreateStory(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateStoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	story, err := h.content.CreateStory(c.Request().Context(), currentUserID, req)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusCreated, story)
}

func (h *StoryHandler) GetUserStories(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	ownerID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	stories, err := h.visibility.UserStories(c.Request().Context(), currentUserID, ownerID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"stories": stories})
}

// ViewStory records that the current user has seen a story
func (h *StoryHandler) ViewStory(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	ignored, err := h.visibility.ViewStory(c.Request().Context(), currentUserID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"ignored": ignored})
}

// ReplyToStory answers a story in a direct message to its owner
func (h *StoryHandler) ReplyToStory(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.StoryReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.conversations.ReplyToStory(c.Request().Context(), currentUserID, c.Param("id"), req.Text)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusCreated, msg)
}

func (h *StoryHandler) DeleteStory(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.content.DeleteStory(c.Request().Context(), currentUserID, c.Param("id")); err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}
