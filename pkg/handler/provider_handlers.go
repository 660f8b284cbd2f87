package handler

import (
	"net/http"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/gin-gonic/gin"
)

// ProviderSource reports the active chat provider.
type ProviderSource interface {
	Info() models.ProviderInfo
}

type ProviderHandler struct {
	source ProviderSource
}

func NewProviderHandler(source ProviderSource) *ProviderHandler {
	return &ProviderHandler{source: source}
}

func (h *ProviderHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/provider", h.Get)
}

// Get returns the provider, its default model and the circuit state.
func (h *ProviderHandler) Get(c *gin.Context) {
	if h.source == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no chat provider configured"})
		return
	}
	c.JSON(http.StatusOK, h.source.Info())
}
