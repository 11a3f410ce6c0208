package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RealtimeHandler upgrades authenticated requests to push connections
type RealtimeHandler struct {
	hub        *realtime.Hub
	rooms      realtime.RoomAuthorizer
	bufferSize int
	logger     *slog.Logger
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(hub *realtime.Hub, rooms realtime.RoomAuthorizer, bufferSize int, logger *slog.Logger) *RealtimeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RealtimeHandler{hub: hub, rooms: rooms, bufferSize: bufferSize, logger: logger}
}

// ServeWS holds the connection open until the client goes away
func (h *RealtimeHandler) ServeWS(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Warn("websocket upgrade failed", "user_id", currentUserID, "error", err)
		return nil
	}
	client := realtime.NewClient(h.hub, conn, currentUserID, h.bufferSize)
	client.Run(context.WithoutCancel(c.Request().Context()), h.rooms)
	return nil
}
