package handlers

import (
	"errors"
	"log"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/logging"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/middleware"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/security"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

// ChatHandler answers member questions and keeps their conversation history
type ChatHandler struct {
	sessions     services.SessionStore
	responder    services.Responder
	historyTurns int
	metrics      *services.Metrics
}

// NewChatHandler creates a new chat handler
func NewChatHandler(sessions services.SessionStore, responder services.Responder, historyTurns int, metrics *services.Metrics) *ChatHandler {
	if historyTurns <= 0 {
		historyTurns = services.DefaultHistoryTurns
	}
	return &ChatHandler{
		sessions:     sessions,
		responder:    responder,
		historyTurns: historyTurns,
		metrics:      metrics,
	}
}

// sessionOwner is the user id recorded on sessions; anonymous callers record none
func sessionOwner(c *fiber.Ctx) string {
	userID, _, authenticated := middleware.CurrentUser(c)
	if !authenticated {
		return ""
	}
	return userID
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	req, ok := middleware.ChatRequestFrom(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "message is required",
		})
	}

	start := time.Now()
	h.metrics.RecordChatRequest()
	ctx := c.UserContext()
	userID := sessionOwner(c)

	// Session-less questions are answered without history and never persisted
	if req.SessionID == "" {
		out, err := h.responder.Respond(ctx, services.ResponderInput{Message: req.Message, UserID: userID})
		if err != nil {
			return h.responderFailed(c, err, slog.Default())
		}
		h.metrics.RecordChatLatency(time.Since(start).Seconds())
		return c.JSON(models.ChatResponse{
			Success:  true,
			Response: out.Answer,
			Cached:   false,
			Context:  out.Context,
		})
	}

	session, err := h.sessions.FindOrCreate(ctx, req.SessionID, userID, models.SessionMetadata{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IP:        c.IP(),
	})
	if err != nil {
		log.Printf("❌ [CHAT] Failed to load session: %v", err)
		h.metrics.RecordChatError("session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load conversation",
		})
	}

	logger := logging.WithSession(session.SessionID, userID)

	out, err := h.responder.Respond(ctx, services.ResponderInput{
		Message: req.Message,
		History: services.HistoryForGeneration(session, h.historyTurns),
		UserID:  userID,
	})
	if err != nil {
		return h.responderFailed(c, err, logger)
	}

	if session, err = h.sessions.AppendMessage(ctx, session, models.RoleUser, req.Message); err == nil {
		session, err = h.sessions.AppendMessage(ctx, session, models.RoleAssistant, out.Answer)
	}
	if err != nil {
		logger.Error("failed to save conversation", "error", err)
		h.metrics.RecordChatError("session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to save conversation",
		})
	}

	h.metrics.RecordChatLatency(time.Since(start).Seconds())
	logger.Debug("chat turn completed", "messages", len(session.Messages), "context", len(out.Context))

	return c.JSON(models.ChatResponse{
		Success:   true,
		Response:  out.Answer,
		Cached:    false,
		Context:   out.Context,
		SessionID: session.SessionID,
	})
}

func (h *ChatHandler) responderFailed(c *fiber.Ctx, err error, logger *slog.Logger) error {
	logger.Error("responder failed", "error", err)
	h.metrics.RecordChatError("responder")
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"success": false,
		"error":   "Failed to generate a response. Please try again.",
	})
}

// loadOwnedSession fetches a session the caller may see. Sessions owned by
// another user are reported as not found.
func (h *ChatHandler) loadOwnedSession(c *fiber.Ctx) (*models.ConversationSession, error) {
	sessionID := c.Params("sessionId")
	if err := security.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	session, err := h.sessions.Get(c.UserContext(), sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != "" && session.UserID != sessionOwner(c) {
		return nil, services.ErrSessionNotFound
	}
	return session, nil
}

func sessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, security.ErrSessionIDInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Session not found",
		})
	default:
		log.Printf("❌ [CHAT] Session lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load conversation",
		})
	}
}

// History handles GET /api/chat/history/:sessionId
func (h *ChatHandler) History(c *fiber.Ctx) error {
	session, err := h.loadOwnedSession(c)
	if err != nil {
		return sessionError(c, err)
	}

	messages := session.Messages
	if messages == nil {
		messages = []models.SessionMessage{}
	}
	return c.JSON(models.ChatHistoryResponse{
		Success:   true,
		SessionID: session.SessionID,
		Messages:  messages,
	})
}

// DeleteHistory handles DELETE /api/chat/history/:sessionId
func (h *ChatHandler) DeleteHistory(c *fiber.Ctx) error {
	session, err := h.loadOwnedSession(c)
	if err != nil {
		return sessionError(c, err)
	}

	if err := h.sessions.Delete(c.UserContext(), session.SessionID); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"sessionId": session.SessionID,
	})
}
