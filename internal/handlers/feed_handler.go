package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed and profile HTTP requests
type FeedHandler struct {
	visibility *services.VisibilityService
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(visibility *services.VisibilityService) *FeedHandler {
	return &FeedHandler{visibility: visibility}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/profiles/:username", h.GetProfile)
}

// GetFeed returns one page of the current user's feed
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))

	feed, err := h.visibility.Feed(c.Request().Context(), currentUserID, page)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": feed.Posts},
		"meta": echo.Map{
			"currentPage":  feed.Page,
			"itemsPerPage": services.FeedPageSize,
			"hasNextPage":  feed.HasMore,
		},
	})
}

// GetProfile returns a profile as the current user is allowed to see it
func (h *FeedHandler) GetProfile(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	profile, err := h.visibility.Profile(c.Request().Context(), currentUserID, c.Param("username"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, profile)
}
