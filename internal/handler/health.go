package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ayung21/billing-ps-api-sub000/internal/tv"
)

// HealthHandler handles health and ready checks.
type HealthHandler struct {
	registry *tv.Registry
}

// NewHealthHandler creates a health handler reporting connected TV count.
func NewHealthHandler(reg *tv.Registry) *HealthHandler {
	return &HealthHandler{registry: reg}
}

// Health responds to GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"service":       "billing-ps-api",
		"tvs_connected": len(h.registry.All()),
		"time":          time.Now().Unix(),
	})
}

// Ready responds to GET /ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
