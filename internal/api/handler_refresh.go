package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ticket-queue-monitor/internal/refresh"
)

type roundResponse struct {
	Results  map[string]string `json:"results"`
	Failures int               `json:"failures"`
	TookMs   int64             `json:"tookMs"`
}

// PostRefresh re-fetches every channel in visible mode.
func (h *Handler) PostRefresh(c *gin.Context) {
	round := h.board.RefreshAll(context.WithoutCancel(c.Request.Context()))
	results := make(map[string]string, len(round.Results))
	for _, r := range round.Results {
		results[r.Channel] = r.Outcome.String()
	}
	c.JSON(http.StatusOK, roundResponse{
		Results:  results,
		Failures: round.Failures,
		TookMs:   round.Took.Milliseconds(),
	})
}

// GetRefresh returns the auto-refresh configuration.
func (h *Handler) GetRefresh(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.RefreshConfig())
}

type putRefreshRequest struct {
	Enabled    *bool `json:"enabled"`
	IntervalMs *int  `json:"intervalMs"`
}

// PutRefresh updates the interval and/or the enabled flag.
func (h *Handler) PutRefresh(c *gin.Context) {
	var req putRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	coord := h.board.Coordinator()
	if req.IntervalMs != nil {
		if err := coord.SetInterval(time.Duration(*req.IntervalMs) * time.Millisecond); err != nil {
			var ve *refresh.ValidationError
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Enabled != nil {
		if *req.Enabled {
			coord.Enable(h.ctx)
		} else {
			coord.Disable()
		}
	}
	c.JSON(http.StatusOK, h.board.RefreshConfig())
}
