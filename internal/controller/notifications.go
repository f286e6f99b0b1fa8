package controller

import (
	"net/http"

	"taskpulse/internal/middleware"
	"taskpulse/internal/notify"

	"github.com/gin-gonic/gin"
)

// Notifications exposes the caller's notification list and read marks.
type Notifications struct {
	engine *notify.Engine
}

// NewNotifications wires the notifications controller.
func NewNotifications(engine *notify.Engine) *Notifications {
	return &Notifications{engine: engine}
}

// List returns the caller's notifications, newest first. The read prunes
// rows beyond the retention cap as a side effect.
func (h *Notifications) List(c *gin.Context) {
	notifications, err := h.engine.List(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead marks one of the caller's notifications as read. Idempotent.
func (h *Notifications) MarkRead(c *gin.Context) {
	err := h.engine.MarkRead(c.Request.Context(), c.Param("id"), middleware.Actor(c).ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
