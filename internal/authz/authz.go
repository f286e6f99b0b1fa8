// Package authz decides which fields of a proposed task mutation an actor
// may apply. Decisions are pure in-memory checks: callers fetch the current
// task and pass it in, so the policy can be exercised without a live store.
package authz

import (
	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
)

// Role describes the actor's relationship to a task.
type Role int

const (
	RoleNone Role = iota
	RoleAssignee
	RoleCreator // creator wins when the creator assigned themselves
)

// RoleOf resolves the actor's role on a task.
func RoleOf(task *models.Task, actorID string) Role {
	if task.CreatorID == actorID {
		return RoleCreator
	}
	if task.AssignedToID != nil && *task.AssignedToID == actorID {
		return RoleAssignee
	}
	return RoleNone
}

// AuthorizeUpdate returns the permitted patch for the actor, or rejects the
// whole operation. The check is all-or-nothing: a single disallowed field
// voids the request, nothing is partially applied.
//
//   - creator: every proposed field is permitted, including reassignment
//   - assignee: only status, and the patch must actually propose status
//   - anyone else: forbidden
func AuthorizeUpdate(task *models.Task, actorID string, patch *models.TaskPatch) (*models.TaskPatch, error) {
	switch RoleOf(task, actorID) {
	case RoleCreator:
		return patch, nil
	case RoleAssignee:
		if !patch.Status.Set || patch.ProposesOtherThanStatus() {
			return nil, apperr.Forbidden("assignee can only update task status")
		}
		return &models.TaskPatch{Status: patch.Status}, nil
	default:
		return nil, apperr.Forbidden("not authorized to update this task")
	}
}

// AuthorizeDelete permits deletion for the creator only.
func AuthorizeDelete(task *models.Task, actorID string) error {
	if RoleOf(task, actorID) != RoleCreator {
		return apperr.Forbidden("not authorized to delete this task")
	}
	return nil
}
