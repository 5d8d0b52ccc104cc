package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-backend/internal/documents"
	"knowledge-backend/internal/shared/server/middleware"
	"knowledge-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the chat service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.sendMessage)
	rg.GET("/chat/sessions", h.listSessions)
	rg.GET("/chat/sessions/:id/messages", h.listMessages)
	rg.PATCH("/chat/sessions/:id", h.updateSession)
	rg.DELETE("/chat/sessions/:id", h.deleteSession)
}

type sendRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Scope     string `json:"scope"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.SessionID != "" {
		c.Set("sessionId", req.SessionID)
	}

	scope, err := documents.ParseScope(req.Scope)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "scope must be MY, COMPANY or ALL", nil)
		return
	}
	c.Set("scope", string(scope))

	result, err := h.Svc.SendMessage(c.Request.Context(), SendInput{
		OwnerID:   userID,
		SessionID: req.SessionID,
		Text:      req.Message,
		Scope:     scope,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "message text is required", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		case errors.Is(err, ErrAgent):
			respond.Error(c, http.StatusBadGateway, "agent_unavailable", "assistant is temporarily unavailable", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to send message", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, sendResponse{
		Session:        toSessionResponse(result.Session),
		Created:        result.Created,
		Message:        toMessageResponse(result.UserMessage),
		AssistantReply: toMessageResponse(result.AssistantReply),
	})
}

func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	sessions, err := h.Svc.ListSessions(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list sessions", nil)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	respond.JSON(c, http.StatusOK, gin.H{"sessions": out})
}

func (h *Handler) listMessages(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("id")
	c.Set("sessionId", sessionID)

	messages, err := h.Svc.ListMessages(c.Request.Context(), sessionID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list messages", nil)
		}
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	respond.JSON(c, http.StatusOK, gin.H{"messages": out})
}

type updateRequest struct {
	Title    *string `json:"title"`
	IsPinned *bool   `json:"isPinned"`
}

func (h *Handler) updateSession(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("id")
	c.Set("sessionId", sessionID)

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	session, err := h.Svc.Update(c.Request.Context(), sessionID, userID, UpdateInput{
		Title:    req.Title,
		IsPinned: req.IsPinned,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update session", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) deleteSession(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("id")
	c.Set("sessionId", sessionID)

	if err := h.Svc.Delete(c.Request.Context(), sessionID, userID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete session", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"deleted": true})
}
