package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
	"taskpulse/internal/notify"
)

// memTaskStore is an in-memory TaskStore. FindByID returns independent
// clones so callers get real snapshots, like rows scanned from the DB.
type memTaskStore struct {
	tasks map[string]*models.Task
	seq   int
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[string]*models.Task)}
}

func (m *memTaskStore) Create(_ context.Context, t *models.Task) error {
	m.seq++
	t.ID = fmt.Sprintf("t-%d", m.seq)
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *memTaskStore) FindByID(_ context.Context, id string) (*models.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task not found")
	}
	c := t.Clone()
	c.Creator = &models.UserSummary{ID: c.CreatorID, Name: "name-" + c.CreatorID}
	if c.AssignedToID != nil {
		c.AssignedTo = &models.UserSummary{ID: *c.AssignedToID, Name: "name-" + *c.AssignedToID}
	}
	return c, nil
}

func (m *memTaskStore) ListAll(_ context.Context) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range m.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memTaskStore) ListAssignedTo(ctx context.Context, userID string) ([]*models.Task, error) {
	all, _ := m.ListAll(ctx)
	var out []*models.Task
	for _, t := range all {
		if t.AssignedToID != nil && *t.AssignedToID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTaskStore) ListCreatedBy(ctx context.Context, userID string) ([]*models.Task, error) {
	all, _ := m.ListAll(ctx)
	var out []*models.Task
	for _, t := range all {
		if t.CreatorID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTaskStore) ListFiltered(ctx context.Context, status, priority *string, _ bool) ([]*models.Task, error) {
	all, _ := m.ListAll(ctx)
	var out []*models.Task
	for _, t := range all {
		if status != nil && string(t.Status) != *status {
			continue
		}
		if priority != nil && string(t.Priority) != *priority {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTaskStore) ApplyPatch(_ context.Context, id string, patch *models.TaskPatch) error {
	t, ok := m.tasks[id]
	if !ok {
		return apperr.NotFound("task not found")
	}
	if patch.Title.Set {
		t.Title = patch.Title.Value
	}
	if patch.Description.Set {
		if patch.Description.Valid {
			d := patch.Description.Value
			t.Description = &d
		} else {
			t.Description = nil
		}
	}
	if patch.DueDate.Set {
		t.DueDate = patch.DueDate.Value
	}
	if patch.Priority.Set {
		t.Priority = patch.Priority.Value
	}
	if patch.Status.Set {
		t.Status = patch.Status.Value
	}
	if patch.AssignedToID.Set {
		if patch.AssignedToID.Valid {
			a := patch.AssignedToID.Value
			t.AssignedToID = &a
		} else {
			t.AssignedToID = nil
		}
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memTaskStore) Delete(_ context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return apperr.NotFound("task not found")
	}
	delete(m.tasks, id)
	return nil
}

// memNotifStore is a minimal notify.Store for the wired engine.
type memNotifStore struct {
	rows []models.Notification
	seq  int
}

func (m *memNotifStore) Create(_ context.Context, n *models.Notification) error {
	m.seq++
	n.ID = fmt.Sprintf("n-%d", m.seq)
	n.CreatedAt = time.Unix(1_700_000_000, 0).Add(time.Duration(m.seq) * time.Second)
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifStore) FindByID(_ context.Context, id string) (*models.Notification, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			n := m.rows[i]
			return &n, nil
		}
	}
	return nil, apperr.NotFound("notification not found")
}

func (m *memNotifStore) ListAndPrune(_ context.Context, userID string, keep int) ([]models.Notification, error) {
	var mine, rest []models.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			mine = append(mine, n)
		} else {
			rest = append(rest, n)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	if len(mine) > keep {
		mine = mine[:keep]
	}
	m.rows = append(rest, mine...)
	return mine, nil
}

func (m *memNotifStore) UnreadSince(_ context.Context, userID string, since time.Time) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.rows {
		if n.UserID == userID && !n.Read && !n.CreatedAt.Before(since) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifStore) MarkRead(_ context.Context, id string) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Read = true
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

func (m *memNotifStore) forUser(userID string) []models.Notification {
	var out []models.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// memSink records audit entries.
type memSink struct {
	entries []models.AuditEntry
}

func (s *memSink) Record(_ context.Context, e models.AuditEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

// recChannel records emitted events as "scope/event".
type recChannel struct {
	emits []string
}

func (r *recChannel) EmitToUser(_ context.Context, userID, event string, _ interface{}) {
	r.emits = append(r.emits, userID+"/"+event)
}

func (r *recChannel) EmitAll(_ context.Context, event string, _ interface{}) {
	r.emits = append(r.emits, "*/"+event)
}

func (r *recChannel) has(e string) bool {
	for _, got := range r.emits {
		if got == e {
			return true
		}
	}
	return false
}

type fixture struct {
	svc    *Tasks
	store  *memTaskStore
	notifs *memNotifStore
	sink   *memSink
	ch     *recChannel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemTaskStore()
	notifs := &memNotifStore{}
	sink := &memSink{}
	ch := &recChannel{}
	engine := notify.NewEngine(notifs, ch, 15, 7*24*time.Hour)
	return &fixture{
		svc:    NewTasks(store, engine, sink, ch, nil),
		store:  store,
		notifs: notifs,
		sink:   sink,
		ch:     ch,
	}
}

var (
	creator  = &models.User{ID: "creator", Name: "Cara", Email: "cara@example.com"}
	assignee = &models.User{ID: "assignee", Name: "Al", Email: "al@example.com"}
	stranger = &models.User{ID: "stranger", Name: "Sam", Email: "sam@example.com"}
)

func strPtr(s string) *string { return &s }

func createInput(assignedTo *string) CreateTaskInput {
	return CreateTaskInput{
		Title:        "Write report",
		DueDate:      time.Now().Add(48 * time.Hour).UTC(),
		Priority:     models.PriorityHigh,
		Status:       models.StatusToDo,
		AssignedToID: assignedTo,
	}
}

func mustCreate(t *testing.T, f *fixture, assignedTo *string) *models.Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), creator, createInput(assignedTo))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return task
}

func statusPatch(s models.Status) *models.TaskPatch {
	return &models.TaskPatch{Status: models.OptStatus{Set: true, Value: s}}
}

func titlePatch(title string) *models.TaskPatch {
	return &models.TaskPatch{Title: models.OptString{Set: true, Valid: true, Value: title}}
}

func TestCreate_WithAssignee(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	if task.CreatorID != "creator" {
		t.Errorf("creator_id = %q", task.CreatorID)
	}
	notifs := f.notifs.forUser("assignee")
	if len(notifs) != 1 || notifs[0].Type != models.NotifyTaskAssigned {
		t.Fatalf("assignee notifications = %+v, want one TaskAssigned", notifs)
	}
	if !f.ch.has("*/task:created") || !f.ch.has("assignee/task:assigned") {
		t.Errorf("emits = %v", f.ch.emits)
	}
	if len(f.sink.entries) != 1 || f.sink.entries[0].Action != models.AuditCreated {
		t.Errorf("audit = %+v, want one CREATED", f.sink.entries)
	}
}

func TestCreate_NoAssignee(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, nil)

	if len(f.notifs.rows) != 0 {
		t.Errorf("notifications = %+v, want none", f.notifs.rows)
	}
	if f.ch.has("assignee/task:assigned") {
		t.Error("task:assigned emitted without an assignee")
	}
}

func TestUpdate_StrangerForbiddenAndUnchanged(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	_, err := f.svc.Update(context.Background(), stranger, task.ID, statusPatch(models.StatusReview))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	got, _ := f.store.FindByID(context.Background(), task.ID)
	if got.Status != models.StatusToDo {
		t.Errorf("status = %s, task must be unchanged", got.Status)
	}
}

func TestUpdate_AssigneeStatusAnyValue(t *testing.T) {
	for _, s := range []models.Status{models.StatusInProgress, models.StatusReview, models.StatusCompleted, models.StatusToDo} {
		f := newFixture(t)
		task := mustCreate(t, f, strPtr("assignee"))
		got, err := f.svc.Update(context.Background(), assignee, task.ID, statusPatch(s))
		if err != nil {
			t.Fatalf("status %s: %v", s, err)
		}
		if got.Status != s {
			t.Errorf("status = %s, want %s", got.Status, s)
		}
	}
}

func TestUpdate_AssigneeOverreachAppliesNothing(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	patch := statusPatch(models.StatusCompleted)
	patch.Title = models.OptString{Set: true, Valid: true, Value: "sneaky"}
	_, err := f.svc.Update(context.Background(), assignee, task.ID, patch)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	got, _ := f.store.FindByID(context.Background(), task.ID)
	if got.Title != "Write report" || got.Status != models.StatusToDo {
		t.Errorf("task mutated on rejected patch: %+v", got)
	}
	if len(f.notifs.forUser("creator")) != 0 {
		t.Error("rejected completion must not notify")
	}
}

func TestUpdate_AssigneeTitleOnlyForbidden(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))
	_, err := f.svc.Update(context.Background(), assignee, task.ID, titlePatch("x"))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestUpdate_CreatorAnySubsetIncludingReassignment(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	patch := &models.TaskPatch{
		Title:        models.OptString{Set: true, Valid: true, Value: "Rewrite report"},
		Priority:     models.OptPriority{Set: true, Value: models.PriorityUrgent},
		AssignedToID: models.OptString{Set: true, Valid: true, Value: "other"},
	}
	got, err := f.svc.Update(context.Background(), creator, task.ID, patch)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Rewrite report" || got.Priority != models.PriorityUrgent || *got.AssignedToID != "other" {
		t.Errorf("task = %+v", got)
	}
	// New assignee notified, old one not.
	if len(f.notifs.forUser("other")) != 1 {
		t.Errorf("new assignee notifications = %+v", f.notifs.forUser("other"))
	}
}

func TestUpdate_ReassignToSameUserNoNotification(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))
	before := len(f.notifs.forUser("assignee"))

	patch := &models.TaskPatch{AssignedToID: models.OptString{Set: true, Valid: true, Value: "assignee"}}
	if _, err := f.svc.Update(context.Background(), creator, task.ID, patch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := len(f.notifs.forUser("assignee")); got != before {
		t.Errorf("notifications went %d -> %d on same-user reassign", before, got)
	}
}

func TestUpdate_AssigneeCompletionNotifiesCreatorOnce(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	if _, err := f.svc.Update(context.Background(), assignee, task.ID, statusPatch(models.StatusCompleted)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	notifs := f.notifs.forUser("creator")
	if len(notifs) != 1 || notifs[0].Type != models.NotifyTaskCompleted {
		t.Fatalf("creator notifications = %+v", notifs)
	}

	// Already Completed: setting it again is not a transition.
	if _, err := f.svc.Update(context.Background(), assignee, task.ID, statusPatch(models.StatusCompleted)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(f.notifs.forUser("creator")) != 1 {
		t.Error("re-completing must not notify again")
	}
}

func TestUpdate_NonCompletedTransitionsDoNotNotify(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	for _, s := range []models.Status{models.StatusInProgress, models.StatusReview, models.StatusToDo} {
		if _, err := f.svc.Update(context.Background(), assignee, task.ID, statusPatch(s)); err != nil {
			t.Fatalf("Update(%s): %v", s, err)
		}
	}
	if len(f.notifs.forUser("creator")) != 0 {
		t.Errorf("creator notifications = %+v, want none", f.notifs.forUser("creator"))
	}
}

func TestUpdate_CreatorCompletionDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	if _, err := f.svc.Update(context.Background(), creator, task.ID, statusPatch(models.StatusCompleted)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(f.notifs.forUser("creator")) != 0 {
		t.Error("creator-driven completion must not notify")
	}
}

func TestUpdate_NoOpProducesNoAuditNoNotification(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))
	auditBefore := len(f.sink.entries)
	notifBefore := len(f.notifs.rows)

	// Propose exactly the current values for every field.
	patch := &models.TaskPatch{
		Title:        models.OptString{Set: true, Valid: true, Value: task.Title},
		DueDate:      models.OptTime{Set: true, Valid: true, Value: task.DueDate},
		Priority:     models.OptPriority{Set: true, Value: task.Priority},
		Status:       models.OptStatus{Set: true, Value: task.Status},
		AssignedToID: models.OptString{Set: true, Valid: true, Value: *task.AssignedToID},
	}
	if _, err := f.svc.Update(context.Background(), creator, task.ID, patch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(f.sink.entries) != auditBefore {
		t.Errorf("audit entries grew on no-op update: %+v", f.sink.entries)
	}
	if len(f.notifs.rows) != notifBefore {
		t.Errorf("notifications grew on no-op update")
	}
}

func TestUpdate_ValidationBeforeStore(t *testing.T) {
	f := newFixture(t)
	patch := &models.TaskPatch{Status: models.OptStatus{Set: true, Value: "Done"}}
	_, err := f.svc.Update(context.Background(), creator, "does-not-exist", patch)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError (before the NotFound lookup)", err)
	}
}

func TestUpdate_StatusChangeAuditAction(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	if _, err := f.svc.Update(context.Background(), assignee, task.ID, statusPatch(models.StatusReview)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	last := f.sink.entries[len(f.sink.entries)-1]
	if last.Action != models.AuditStatusChanged {
		t.Errorf("action = %s, want STATUS_CHANGED", last.Action)
	}
	if len(last.Changes) != 1 || last.Changes[0].Field != "status" {
		t.Errorf("changes = %+v", last.Changes)
	}

	if _, err := f.svc.Update(context.Background(), creator, task.ID, titlePatch("Renamed")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	last = f.sink.entries[len(f.sink.entries)-1]
	if last.Action != models.AuditUpdated {
		t.Errorf("action = %s, want UPDATED", last.Action)
	}
}

func TestDelete_CreatorOnly(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	if err := f.svc.Delete(context.Background(), assignee, task.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("assignee delete: err = %v, want ErrForbidden", err)
	}
	if _, err := f.store.FindByID(context.Background(), task.ID); err != nil {
		t.Fatal("task must remain retrievable after rejected delete")
	}

	if err := f.svc.Delete(context.Background(), creator, task.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if _, err := f.store.FindByID(context.Background(), task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("task still retrievable after delete")
	}
}

func TestDelete_AssignedNotifiesAssignee(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, strPtr("assignee"))

	if err := f.svc.Delete(context.Background(), creator, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var deleted []models.Notification
	for _, n := range f.notifs.forUser("assignee") {
		if n.Type == models.NotifyTaskDeleted {
			deleted = append(deleted, n)
		}
	}
	if len(deleted) != 1 {
		t.Fatalf("TaskDeleted notifications = %+v, want 1", deleted)
	}
	if !f.ch.has("*/task:deleted") {
		t.Errorf("emits = %v", f.ch.emits)
	}
}

func TestDelete_UnassignedNoNotification(t *testing.T) {
	f := newFixture(t)
	task := mustCreate(t, f, nil)

	if err := f.svc.Delete(context.Background(), creator, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.notifs.rows) != 0 {
		t.Errorf("notifications = %+v, want none", f.notifs.rows)
	}
}

func TestEndToEnd_CreateCompleteDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	engine := notify.NewEngine(f.notifs, f.ch, 15, 7*24*time.Hour)

	// C creates a task assigned to Z.
	task := mustCreate(t, f, strPtr("assignee"))
	if n := f.notifs.forUser("assignee"); len(n) != 1 || n[0].Type != models.NotifyTaskAssigned {
		t.Fatalf("after create: %+v", n)
	}

	// Z completes it.
	if _, err := f.svc.Update(ctx, assignee, task.ID, statusPatch(models.StatusCompleted)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if n := f.notifs.forUser("creator"); len(n) != 1 || n[0].Type != models.NotifyTaskCompleted {
		t.Fatalf("after complete: %+v", n)
	}
	if len(f.sink.entries) != 2 ||
		f.sink.entries[0].Action != models.AuditCreated ||
		f.sink.entries[1].Action != models.AuditStatusChanged {
		t.Fatalf("audit = %+v", f.sink.entries)
	}

	// C deletes it.
	if err := f.svc.Delete(ctx, creator, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.sink.entries) != 3 || f.sink.entries[2].Action != models.AuditDeleted {
		t.Fatalf("audit after delete = %+v", f.sink.entries)
	}
	if f.sink.entries[2].TaskTitle != "Write report" {
		t.Errorf("deletion must capture the title: %+v", f.sink.entries[2])
	}

	// Z's notifications survive the task.
	got, err := engine.List(ctx, "assignee")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("assignee notifications = %+v, want TaskAssigned and TaskDeleted", got)
	}
}
