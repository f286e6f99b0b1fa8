package authz

import (
	"errors"
	"testing"
	"time"

	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
)

func strPtr(s string) *string { return &s }

func sampleTask() *models.Task {
	return &models.Task{
		ID:           "task-1",
		Title:        "Write report",
		DueDate:      time.Now().Add(48 * time.Hour),
		Priority:     models.PriorityMedium,
		Status:       models.StatusToDo,
		CreatorID:    "creator",
		AssignedToID: strPtr("assignee"),
	}
}

func statusPatch(s models.Status) *models.TaskPatch {
	return &models.TaskPatch{Status: models.OptStatus{Set: true, Value: s}}
}

func TestRoleOf(t *testing.T) {
	task := sampleTask()
	if got := RoleOf(task, "creator"); got != RoleCreator {
		t.Errorf("RoleOf(creator) = %v, want RoleCreator", got)
	}
	if got := RoleOf(task, "assignee"); got != RoleAssignee {
		t.Errorf("RoleOf(assignee) = %v, want RoleAssignee", got)
	}
	if got := RoleOf(task, "stranger"); got != RoleNone {
		t.Errorf("RoleOf(stranger) = %v, want RoleNone", got)
	}

	// Creator who assigned themselves is still the creator.
	task.AssignedToID = strPtr("creator")
	if got := RoleOf(task, "creator"); got != RoleCreator {
		t.Errorf("RoleOf(self-assigned creator) = %v, want RoleCreator", got)
	}
}

func TestAuthorizeUpdate_Stranger(t *testing.T) {
	_, err := AuthorizeUpdate(sampleTask(), "stranger", statusPatch(models.StatusReview))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAuthorizeUpdate_CreatorKeepsWholePatch(t *testing.T) {
	patch := &models.TaskPatch{
		Title:        models.OptString{Set: true, Valid: true, Value: "New title"},
		Status:       models.OptStatus{Set: true, Value: models.StatusCompleted},
		AssignedToID: models.OptString{Set: true, Valid: true, Value: "other-user"},
	}
	got, err := AuthorizeUpdate(sampleTask(), "creator", patch)
	if err != nil {
		t.Fatalf("AuthorizeUpdate: %v", err)
	}
	if got != patch {
		t.Error("creator patch should pass through unfiltered")
	}
}

func TestAuthorizeUpdate_AssigneeStatusOnly(t *testing.T) {
	for _, s := range []models.Status{models.StatusToDo, models.StatusInProgress, models.StatusReview, models.StatusCompleted} {
		got, err := AuthorizeUpdate(sampleTask(), "assignee", statusPatch(s))
		if err != nil {
			t.Fatalf("status %s: %v", s, err)
		}
		if !got.Status.Set || got.Status.Value != s {
			t.Errorf("status %s: permitted patch = %+v", s, got)
		}
	}
}

func TestAuthorizeUpdate_AssigneeOverreach(t *testing.T) {
	cases := map[string]*models.TaskPatch{
		"title only": {
			Title: models.OptString{Set: true, Valid: true, Value: "sneaky"},
		},
		"status plus title": {
			Title:  models.OptString{Set: true, Valid: true, Value: "sneaky"},
			Status: models.OptStatus{Set: true, Value: models.StatusCompleted},
		},
		"reassignment": {
			AssignedToID: models.OptString{Set: true, Valid: true, Value: "someone-else"},
		},
		"empty patch": {},
	}
	for name, patch := range cases {
		got, err := AuthorizeUpdate(sampleTask(), "assignee", patch)
		if !errors.Is(err, apperr.ErrForbidden) {
			t.Errorf("%s: err = %v, want ErrForbidden", name, err)
		}
		if got != nil {
			t.Errorf("%s: permitted patch should be nil on rejection", name)
		}
	}
}

func TestAuthorizeUpdate_AssigneeFilteredPatchIsStatusOnly(t *testing.T) {
	got, err := AuthorizeUpdate(sampleTask(), "assignee", statusPatch(models.StatusInProgress))
	if err != nil {
		t.Fatalf("AuthorizeUpdate: %v", err)
	}
	if got.ProposesOtherThanStatus() {
		t.Error("assignee patch must carry status and nothing else")
	}
}

func TestAuthorizeUpdate_UnassignedTask(t *testing.T) {
	task := sampleTask()
	task.AssignedToID = nil
	if _, err := AuthorizeUpdate(task, "assignee", statusPatch(models.StatusReview)); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("former assignee on unassigned task: err = %v, want ErrForbidden", err)
	}
}

func TestAuthorizeDelete(t *testing.T) {
	task := sampleTask()
	if err := AuthorizeDelete(task, "creator"); err != nil {
		t.Errorf("creator delete: %v", err)
	}
	if err := AuthorizeDelete(task, "assignee"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("assignee delete: err = %v, want ErrForbidden", err)
	}
	if err := AuthorizeDelete(task, "stranger"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("stranger delete: err = %v, want ErrForbidden", err)
	}
}
