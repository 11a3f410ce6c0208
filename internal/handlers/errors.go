package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/saylink/backend/internal/middleware"
	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// httpError maps a service error kind onto its HTTP status. The body carries
// the error's stable reason.
func httpError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrSelfReference):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAuthorization), errors.Is(err, services.ErrPrivacy):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrConsent), errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	}
	return echo.NewHTTPError(status, services.ReasonOf(err)).WithInternal(err)
}

// getUserIDFromContext returns the authenticated user's id, or 0
func getUserIDFromContext(c echo.Context) uint {
	if id, ok := c.Get(middleware.UserIDKey).(uint); ok {
		return id
	}
	if claims, ok := c.Get("user").(*models.JwtCustomClaims); ok {
		return claims.UserID
	}
	return 0
}

// currentUser is getUserIDFromContext that fails with 401 when nobody is signed in
func currentUser(c echo.Context) (uint, error) {
	id := getUserIDFromContext(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

func parseIDParam(c echo.Context, name, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+what+" ID")
	}
	return uint(id), nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}
