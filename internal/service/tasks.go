// Package service orchestrates task mutations: fetch snapshot, authorize,
// commit, diff, notify, audit — strictly in that order within a request.
// Notify and audit run only after the commit succeeds and never fail the
// mutation.
package service

import (
	"context"
	"time"

	"taskpulse/internal/audit"
	"taskpulse/internal/authz"
	"taskpulse/internal/models"
	"taskpulse/internal/notify"
	"taskpulse/internal/realtime"
	"taskpulse/pkg/logger"
)

// TaskStore is the task persistence the service needs. Satisfied by
// repository.Tasks.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ListAll(ctx context.Context) ([]*models.Task, error)
	ListAssignedTo(ctx context.Context, userID string) ([]*models.Task, error)
	ListCreatedBy(ctx context.Context, userID string) ([]*models.Task, error)
	ListFiltered(ctx context.Context, status, priority *string, sortDesc bool) ([]*models.Task, error)
	ApplyPatch(ctx context.Context, id string, patch *models.TaskPatch) error
	Delete(ctx context.Context, id string) error
}

// Tasks is the task mutation and query service.
type Tasks struct {
	store      TaskStore
	notifier   *notify.Engine
	sink       audit.Sink
	channel    realtime.Channel
	invalidate func(ctx context.Context)
}

// NewTasks wires the task service. invalidate is called after every
// committed mutation (the task-list cache hook); nil means no cache.
func NewTasks(store TaskStore, notifier *notify.Engine, sink audit.Sink, channel realtime.Channel, invalidate func(ctx context.Context)) *Tasks {
	if invalidate == nil {
		invalidate = func(context.Context) {}
	}
	return &Tasks{store: store, notifier: notifier, sink: sink, channel: channel, invalidate: invalidate}
}

// CreateTaskInput is the validated shape for task creation.
type CreateTaskInput struct {
	Title        string          `json:"title" binding:"required,max=100"`
	Description  *string         `json:"description"`
	DueDate      time.Time       `json:"due_date" binding:"required"`
	Priority     models.Priority `json:"priority" binding:"required,oneof=Low Medium High Urgent"`
	Status       models.Status   `json:"status" binding:"required,oneof=ToDo InProgress Review Completed"`
	AssignedToID *string         `json:"assigned_to_id"`
}

func (s *Tasks) record(ctx context.Context, e models.AuditEntry) {
	if err := s.sink.Record(ctx, e); err != nil {
		logger.Error(ctx, "Audit record failed", "task_id", e.TaskID, "action", e.Action, "error", err)
	}
}

// Create makes the actor the creator unconditionally. AssignedToID is
// accepted as-is at creation time; self-service assignment is allowed.
func (s *Tasks) Create(ctx context.Context, actor *models.User, in CreateTaskInput) (*models.Task, error) {
	t := &models.Task{
		Title:        in.Title,
		Description:  in.Description,
		DueDate:      in.DueDate,
		Priority:     in.Priority,
		Status:       in.Status,
		CreatorID:    actor.ID,
		AssignedToID: in.AssignedToID,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	created, err := s.store.FindByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	s.channel.EmitAll(ctx, realtime.EventTaskCreated, created)
	if created.Assigned() {
		s.notifier.TaskAssigned(ctx, created)
		s.channel.EmitToUser(ctx, *created.AssignedToID, realtime.EventTaskAssigned, created)
	}
	s.record(ctx, audit.Entry(actor, models.AuditCreated, created, nil))
	s.invalidate(ctx)
	return created, nil
}

// Update applies the actor's permitted fields to the task. A rejected
// mutation leaves the task entirely unchanged; there is no partial apply.
func (s *Tasks) Update(ctx context.Context, actor *models.User, taskID string, patch *models.TaskPatch) (*models.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	old, err := s.store.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	role := authz.RoleOf(old, actor.ID)
	permitted, err := authz.AuthorizeUpdate(old, actor.ID, patch)
	if err != nil {
		return nil, err
	}
	if err := s.store.ApplyPatch(ctx, taskID, permitted); err != nil {
		return nil, err
	}
	updated, err := s.store.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	changes := audit.Diff(old, updated)
	s.channel.EmitAll(ctx, realtime.EventTaskUpdated, updated)

	if role == authz.RoleCreator && reassigned(old, updated) {
		s.notifier.TaskAssigned(ctx, updated)
		s.channel.EmitToUser(ctx, *updated.AssignedToID, realtime.EventTaskAssigned, updated)
	}
	if role == authz.RoleAssignee && updated.Status == models.StatusCompleted && old.Status != models.StatusCompleted {
		s.notifier.TaskCompleted(ctx, updated, actor.Name)
	}
	if len(changes) > 0 {
		s.record(ctx, audit.Entry(actor, audit.ActionFor(changes), updated, changes))
	}
	s.invalidate(ctx)
	return updated, nil
}

// reassigned reports a change of assignee to a different, non-null user.
func reassigned(old, updated *models.Task) bool {
	if !updated.Assigned() {
		return false
	}
	return !old.Assigned() || *old.AssignedToID != *updated.AssignedToID
}

// Delete removes the task (creator only). The assignee is notified from the
// snapshot taken before the row disappears; the notification outlives the task.
func (s *Tasks) Delete(ctx context.Context, actor *models.User, taskID string) error {
	t, err := s.store.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if err := authz.AuthorizeDelete(t, actor.ID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, taskID); err != nil {
		return err
	}

	s.notifier.TaskDeleted(ctx, t)
	s.channel.EmitAll(ctx, realtime.EventTaskDeleted, map[string]string{"task_id": t.ID})
	s.record(ctx, audit.Entry(actor, models.AuditDeleted, t, nil))
	s.invalidate(ctx)
	return nil
}

// Get returns one task with its user projections.
func (s *Tasks) Get(ctx context.Context, taskID string) (*models.Task, error) {
	return s.store.FindByID(ctx, taskID)
}

// ListAll returns every task, newest first.
func (s *Tasks) ListAll(ctx context.Context) ([]*models.Task, error) {
	return s.store.ListAll(ctx)
}

// ListAssigned returns tasks assigned to the user, by due date.
func (s *Tasks) ListAssigned(ctx context.Context, userID string) ([]*models.Task, error) {
	return s.store.ListAssignedTo(ctx, userID)
}

// ListCreated returns tasks created by the user, newest first.
func (s *Tasks) ListCreated(ctx context.Context, userID string) ([]*models.Task, error) {
	return s.store.ListCreatedBy(ctx, userID)
}

// ListFiltered returns tasks matching the optional filters, by due date.
func (s *Tasks) ListFiltered(ctx context.Context, status, priority *string, sortDesc bool) ([]*models.Task, error) {
	return s.store.ListFiltered(ctx, status, priority, sortDesc)
}
