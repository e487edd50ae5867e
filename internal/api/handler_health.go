package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetHealth returns the latest health probe of the queue service.
func (h *Handler) GetHealth(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "health monitor is not running"})
		return
	}
	c.JSON(http.StatusOK, h.health.Report())
}
