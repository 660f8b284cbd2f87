// Chat HTTP handlers - streamed plain-text completions
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/andrewsamuelsen/bowen/pkg/auth"
	"github.com/andrewsamuelsen/bowen/pkg/llm"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/service"
	"github.com/gin-gonic/gin"
)

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	chatService *service.ChatService
	logger      *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers chat routes
func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Chat)
}

// Chat streams the model reply as raw text.
// POST /api/chat {message, history, systemInstruction, model?}
//
// Errors before the first chunk get a status code; later errors end the
// response early.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	if err := h.chatService.Validate(ctx, userID, req); err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	w := c.Writer
	started := false
	err := h.chatService.Complete(ctx, userID, req, func(chunk string) error {
		if !started {
			started = true
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no") // Disable nginx buffering
			w.WriteHeader(http.StatusOK)
		}
		if _, err := w.WriteString(chunk); err != nil {
			return err
		}
		w.Flush()
		return nil
	})
	if err == nil {
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Status(http.StatusOK)
		}
		return
	}

	if started {
		h.logger.Error("Chat stream aborted", "user", userID, "error", err)
		// The recovery middleware lets this through to net/http, which drops
		// the connection so the client sees an incomplete body.
		panic(http.ErrAbortHandler)
	}
	if errors.Is(err, llm.ErrHighDemand) {
		c.String(http.StatusServiceUnavailable, llm.HighDemandMessage)
		return
	}
	h.logger.Error("API Chat error", "user", userID, "error", err)
	c.String(http.StatusInternalServerError, err.Error())
}
