package handlers

import (
	"net/http"

	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow graph HTTP requests
type FollowHandler struct {
	graph *services.GraphService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(graph *services.GraphService) *FollowHandler {
	return &FollowHandler{graph: graph}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.ToggleFollow)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
	g.GET("/follow-requests", h.GetFollowRequests)
	g.POST("/follow-requests/:id/accept", h.AcceptFollowRequest)
	g.POST("/follow-requests/:id/reject", h.RejectFollowRequest)
}

// ToggleFollow follows, unfollows, or requests to follow a user
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}

	result, err := h.graph.ToggleFollow(c.Request().Context(), currentUserID, targetID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, result)
}

func (h *FollowHandler) GetFollowers(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	userID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	users, err := h.graph.Followers(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"users": users})
}

func (h *FollowHandler) GetFollowing(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	userID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	users, err := h.graph.Following(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"users": users})
}

// GetFollowRequests lists users waiting for the current user's approval
func (h *FollowHandler) GetFollowRequests(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	requests, err := h.graph.ListFollowRequests(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"requests": requests})
}

// AcceptFollowRequest approves the request sent by the user in :id
func (h *FollowHandler) AcceptFollowRequest(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	requesterID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	if err := h.graph.AcceptFollowRequest(c.Request().Context(), currentUserID, requesterID); err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"accepted": true})
}

// RejectFollowRequest declines the request sent by the user in :id
func (h *FollowHandler) RejectFollowRequest(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	requesterID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	if err := h.graph.RejectFollowRequest(c.Request().Context(), currentUserID, requesterID); err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"rejected": true})
}
