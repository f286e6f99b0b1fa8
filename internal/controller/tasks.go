package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"taskpulse/internal/cache"
	"taskpulse/internal/middleware"
	"taskpulse/internal/models"
	"taskpulse/internal/service"
	"taskpulse/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

// Tasks exposes the task API. Every task-returning operation uses the same
// envelope: {"task": ...} or {"tasks": [...]}, never a bare object.
type Tasks struct {
	svc       *service.Tasks
	listGroup singleflight.Group
}

// NewTasks wires the task controller.
func NewTasks(svc *service.Tasks) *Tasks {
	return &Tasks{svc: svc}
}

// List returns all tasks, cache-first as raw bytes; concurrent misses
// collapse into a single DB read.
func (h *Tasks) List(c *gin.Context) {
	ctx := c.Request.Context()
	if b, ok := cache.GetRawTasks(ctx); ok {
		c.Data(http.StatusOK, "application/json", b)
		return
	}
	v, err, _ := h.listGroup.Do("tasks", func() (interface{}, error) {
		tasks, err := h.svc.ListAll(context.Background())
		if err != nil {
			return nil, err
		}
		return json.Marshal(gin.H{"tasks": tasks})
	})
	if err != nil {
		if ctx.Err() != nil || isContextErr(err) {
			return
		}
		logger.Error(ctx, "List tasks failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tasks"})
		return
	}
	b := v.([]byte)
	c.Data(http.StatusOK, "application/json", b)
	go cache.SetRawTasksAsync(b)
}

// Get returns a single task.
func (h *Tasks) Get(c *gin.Context) {
	task, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// ListAssigned returns tasks assigned to the caller, by due date.
func (h *Tasks) ListAssigned(c *gin.Context) {
	tasks, err := h.svc.ListAssigned(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// ListCreated returns tasks created by the caller, newest first.
func (h *Tasks) ListCreated(c *gin.Context) {
	tasks, err := h.svc.ListCreated(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// ListFiltered returns tasks matching ?status=&priority=&sort=asc|desc.
func (h *Tasks) ListFiltered(c *gin.Context) {
	var status, priority *string
	if v := c.Query("status"); v != "" {
		if !models.Status(v).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		status = &v
	}
	if v := c.Query("priority"); v != "" {
		if !models.Priority(v).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority filter"})
			return
		}
		priority = &v
	}
	tasks, err := h.svc.ListFiltered(c.Request.Context(), status, priority, c.Query("sort") == "desc")
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Create validates the body and creates a task with the caller as creator.
func (h *Tasks) Create(c *gin.Context) {
	var in service.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	task, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// Update applies a sparse patch to the task, subject to the actor's role.
func (h *Tasks) Update(c *gin.Context) {
	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	task, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), &patch)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// Delete removes the task (creator only).
func (h *Tasks) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
