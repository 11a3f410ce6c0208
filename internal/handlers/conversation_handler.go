package handlers

import (
	"net/http"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ConversationHandler handles direct message HTTP requests
type ConversationHandler struct {
	conversations *services.ConversationService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// RegisterConversationRoutes registers conversation and message routes
func (h *ConversationHandler) RegisterConversationRoutes(g *echo.Group) {
	g.POST("/users/:id/conversation", h.StartConversation)
	g.GET("/conversations", h.GetConversations)
	g.GET("/conversations/requests", h.GetMessageRequests)
	g.POST("/conversations/:id/accept", h.AcceptRequest)
	g.POST("/conversations/:id/reject", h.RejectRequest)
	g.GET("/conversations/:id/messages", h.GetMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
	g.POST("/conversations/:id/seen", h.MarkSeen)
	g.POST("/share", h.SharePost)
	g.GET("/share/users", h.GetShareUsers)
}

// StartConversation opens, or returns, the conversation with the user in :id
func (h *ConversationHandler) StartConversation(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	conv, isRequest, err := h.conversations.StartConversation(c.Request().Context(), currentUserID, targetID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"conversation": conv, "isRequest": isRequest})
}

func (h *ConversationHandler) GetConversations(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	convs, err := h.conversations.ListConversations(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"conversations": convs})
}

// GetMessageRequests lists pending conversations others opened with the current user
func (h *ConversationHandler) GetMessageRequests(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	requests, err := h.conversations.ListRequests(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"requests": requests})
}

func (h *ConversationHandler) AcceptRequest(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	conv, err := h.conversations.AcceptRequest(c.Request().Context(), currentUserID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"conversation": conv})
}

func (h *ConversationHandler) RejectRequest(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.conversations.RejectRequest(c.Request().Context(), currentUserID, c.Param("id")); err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"rejected": true})
}

func (h *ConversationHandler) GetMessages(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	msgs, err := h.conversations.GetMessages(c.Request().Context(), currentUserID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"messages": msgs})
}

func (h *ConversationHandler) SendMessage(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.conversations.SendMessage(c.Request().Context(), currentUserID, c.Param("id"), req.Text)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusCreated, msg)
}

// MarkSeen marks the other participant's messages as seen by the current user
func (h *ConversationHandler) MarkSeen(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	updated, err := h.conversations.MarkSeen(c.Request().Context(), currentUserID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"updated": updated})
}

func (h *ConversationHandler) SharePost(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.SharePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.conversations.SharePost(c.Request().Context(), currentUserID, req.ReceiverID, req.PostID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusCreated, msg)
}

// GetShareUsers suggests recipients for sharing a post
func (h *ConversationHandler) GetShareUsers(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	users, err := h.conversations.ShareCandidates(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"users": users})
}
