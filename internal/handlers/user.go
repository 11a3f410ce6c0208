package handlers

import (
	"net/http"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to accounts
type UserHandler struct {
	accounts *services.AccountService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// RegisterProfileRoutes registers account routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/me", h.GetMe)
	g.PUT("/me/settings", h.UpdateSettings)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id/presence", h.GetPresence)
}

// GetMe returns the authenticated user's account
func (h *UserHandler) GetMe(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.Me(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, user)
}

// UpdateSettings updates username, name, bio or the privacy flag
func (h *UserHandler) UpdateSettings(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.UpdateSettingsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.UpdateSettings(c.Request().Context(), currentUserID, req)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, user)
}

// SearchUsers searches usernames by the query string q
func (h *UserHandler) SearchUsers(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}
	users, err := h.accounts.Search(c.Request().Context(), query)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"users": users})
}

// GetPresence reports whether a user currently has a live connection
func (h *UserHandler) GetPresence(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	userID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	online, err := h.accounts.IsOnline(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"online": online})
}
