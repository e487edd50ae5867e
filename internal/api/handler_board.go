package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ticket-queue-monitor/internal/action"
	"ticket-queue-monitor/internal/remote"
)

// GetBoard returns every channel, the stats and the action state.
func (h *Handler) GetBoard(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.View())
}

// GetStats returns the aggregate view.
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.Stats())
}

// GetChannel returns one channel snapshot.
func (h *Handler) GetChannel(c *gin.Context) {
	view, ok := h.board.Channel(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}
	c.JSON(http.StatusOK, view)
}

type actionRequest struct {
	TicketNumber *int `json:"ticketNumber"`
}

// PostAction runs an action and, on success, refreshes every channel
// before answering.
func (h *Handler) PostAction(c *gin.Context) {
	name, err := action.Parse(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req actionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	// Channels are shared by every viewer; a client hanging up must not
	// leave "context canceled" on them.
	res, ok := h.board.Run(context.WithoutCancel(c.Request.Context()), name, req.TicketNumber)
	if !ok {
		body := gin.H{"error": "action failed"}
		if err := h.board.Dispatcher().ActionError(); err != nil {
			body["error"] = err.Error()
			var re *remote.RemoteError
			if errors.As(err, &re) && re.StatusCode != 0 {
				body["upstreamStatus"] = re.StatusCode
			}
		}
		c.JSON(http.StatusBadGateway, body)
		return
	}
	if res.Empty {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, res)
}
