// Package notify turns committed task mutations into persisted notifications
// and forwards them to the delivery channel. Persistence comes first: a
// notification exists even if nobody is online to receive it, and a delivery
// failure never rolls it back. Pipeline failures are logged and swallowed so
// the task mutation that triggered them still succeeds.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
	"taskpulse/internal/realtime"
	"taskpulse/pkg/logger"
)

// Store is the notification persistence the engine needs. Satisfied by
// repository.Notifications; tests substitute an in-memory implementation.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListAndPrune(ctx context.Context, userID string, keep int) ([]models.Notification, error)
	UnreadSince(ctx context.Context, userID string, since time.Time) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Engine derives, persists, and delivers notifications.
type Engine struct {
	store        Store
	channel      realtime.Channel
	retention    int
	missedWindow time.Duration
}

// NewEngine builds an engine with an explicitly injected delivery channel.
// Pass realtime.Noop{} when no transport is configured.
func NewEngine(store Store, channel realtime.Channel, retention int, missedWindow time.Duration) *Engine {
	return &Engine{store: store, channel: channel, retention: retention, missedWindow: missedWindow}
}

// createAndEmit persists the notification, then pushes it to the recipient's
// channel. Both steps are best-effort from the mutating caller's view.
func (e *Engine) createAndEmit(ctx context.Context, n *models.Notification) {
	if err := e.store.Create(ctx, n); err != nil {
		logger.Error(ctx, "Notification persist failed", "user_id", n.UserID, "type", n.Type, "error", err)
		return
	}
	e.channel.EmitToUser(ctx, n.UserID, realtime.EventNotification, n)
}

func mustJSON(ctx context.Context, v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error(ctx, "Notification payload marshal failed", "error", err)
		return json.RawMessage("{}")
	}
	return b
}

// TaskAssigned notifies the task's assignee. Fired at creation with an
// assignee and on reassignment to a different user.
func (e *Engine) TaskAssigned(ctx context.Context, task *models.Task) {
	if !task.Assigned() {
		return
	}
	assignedBy := ""
	if task.Creator != nil {
		assignedBy = task.Creator.Name
	}
	e.createAndEmit(ctx, &models.Notification{
		UserID:  *task.AssignedToID,
		Type:    models.NotifyTaskAssigned,
		Title:   "New Task Assigned",
		Message: fmt.Sprintf("You have been assigned: %q", task.Title),
		Data: mustJSON(ctx, map[string]interface{}{
			"task_id":     task.ID,
			"task_title":  task.Title,
			"priority":    task.Priority,
			"due_date":    task.DueDate,
			"assigned_by": assignedBy,
		}),
	})
}

// TaskCompleted notifies the creator that the assignee finished the task.
// Fired only on the transition into Completed, and only when assignee-driven.
func (e *Engine) TaskCompleted(ctx context.Context, task *models.Task, completedBy string) {
	e.createAndEmit(ctx, &models.Notification{
		UserID:  task.CreatorID,
		Type:    models.NotifyTaskCompleted,
		Title:   "Task Completed",
		Message: fmt.Sprintf("%q has been completed by %s", task.Title, completedBy),
		Data: mustJSON(ctx, map[string]interface{}{
			"task_id":      task.ID,
			"task_title":   task.Title,
			"completed_by": completedBy,
		}),
	})
}

// TaskDeleted notifies the assignee that the creator deleted the task they
// were assigned to. The snapshot is taken before the row disappears.
func (e *Engine) TaskDeleted(ctx context.Context, task *models.Task) {
	if !task.Assigned() {
		return
	}
	e.createAndEmit(ctx, &models.Notification{
		UserID:  *task.AssignedToID,
		Type:    models.NotifyTaskDeleted,
		Title:   "Task Deleted",
		Message: fmt.Sprintf("The task %q has been deleted", task.Title),
		Data: mustJSON(ctx, map[string]interface{}{
			"task_id":    task.ID,
			"task_title": task.Title,
		}),
	})
}

// List returns the recipient's notifications, newest first, capped at the
// retention limit. The read prunes older rows as a side effect.
func (e *Engine) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return e.store.ListAndPrune(ctx, userID, e.retention)
}

// Missed returns the unread notifications inside the reconnect lookback
// window, newest first. Best-effort catch-up, not a durable queue.
func (e *Engine) Missed(ctx context.Context, userID string) ([]models.Notification, error) {
	return e.store.UnreadSince(ctx, userID, time.Now().UTC().Add(-e.missedWindow))
}

// MarkRead sets read on the actor's own notification. Idempotent on an
// already-read row; forbidden on someone else's.
func (e *Engine) MarkRead(ctx context.Context, notificationID, actorID string) error {
	n, err := e.store.FindByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != actorID {
		return apperr.Forbidden("not authorized")
	}
	if n.Read {
		return nil
	}
	return e.store.MarkRead(ctx, notificationID)
}
