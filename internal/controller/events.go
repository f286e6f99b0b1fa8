package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"taskpulse/internal/middleware"
	"taskpulse/internal/notify"
	"taskpulse/internal/realtime"
	"taskpulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Events streams realtime frames to the caller over SSE. Connecting joins
// the caller's user channel; missed unread notifications inside the lookback
// window are pushed first as one batch.
type Events struct {
	hub    *realtime.Hub
	engine *notify.Engine
}

// NewEvents wires the SSE controller.
func NewEvents(hub *realtime.Hub, engine *notify.Engine) *Events {
	return &Events{hub: hub, engine: engine}
}

// Stream handles GET /events.
func (h *Events) Stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}
	actor := middleware.Actor(c)
	ctx := c.Request.Context()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe(actor.ID)
	defer sub.Close()

	fmt.Fprint(c.Writer, "data: {\"type\":\"connected\"}\n\n")
	flusher.Flush()

	// Best-effort catch-up; older or already-read events are not replayed.
	missed, err := h.engine.Missed(ctx, actor.ID)
	if err != nil {
		logger.Warn(ctx, "Missed notifications fetch failed", "user_id", actor.ID, "error", err)
	} else if len(missed) > 0 {
		writeFrame(c, flusher, realtime.EventMissedNotification, missed)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-sub.C:
			if !ok {
				return
			}
			// Each SSE "data:" line must not contain newlines
			for _, line := range strings.Split(string(data), "\n") {
				fmt.Fprintf(c.Writer, "data: %s\n", line)
			}
			fmt.Fprintln(c.Writer)
			flusher.Flush()
		}
	}
}

func writeFrame(c *gin.Context, flusher http.Flusher, event string, payload interface{}) {
	b, err := json.Marshal(gin.H{"type": event, "payload": payload})
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", b)
	flusher.Flush()
}
