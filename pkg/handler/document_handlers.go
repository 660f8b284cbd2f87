package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/andrewsamuelsen/bowen/pkg/auth"
	"github.com/andrewsamuelsen/bowen/pkg/service"
	"github.com/gin-gonic/gin"
)

// MaxDocumentSize caps a document upload.
const MaxDocumentSize = 10 << 20

// DocumentHandler serves the per-user documents
type DocumentHandler struct {
	svc    *service.DocumentService
	logger *slog.Logger
}

func NewDocumentHandler(svc *service.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers document routes
func (h *DocumentHandler) RegisterRoutes(r *gin.RouterGroup) {
	for path, coll := range map[string]service.Collection{
		"/graph":        service.Graphs,
		"/cards":        service.Cards,
		"/chat/history": service.Chats,
		"/synthesis":    service.Analyses,
	} {
		r.GET(path, h.Get(coll))
		r.POST(path, h.Put(coll))
	}
	r.GET("/user/metrics", h.Metrics)
}

// Get returns the user's document, or its default when none is stored
func (h *DocumentHandler) Get(coll service.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := h.svc.Get(c.Request.Context(), coll, auth.UserID(c))
		if err != nil {
			h.logger.Error("Failed to load document", "collection", coll.Name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// Put replaces the user's document
func (h *DocumentHandler) Put(coll service.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxDocumentSize)
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
		if err := h.svc.Put(c.Request.Context(), coll, auth.UserID(c), body); err != nil {
			if errors.Is(err, service.ErrInvalidDocument) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			h.logger.Error("Failed to save document", "collection", coll.Name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// Metrics returns the user's token usage
func (h *DocumentHandler) Metrics(c *gin.Context) {
	m, err := h.svc.Usage(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.logger.Error("Failed to fetch user metrics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}
