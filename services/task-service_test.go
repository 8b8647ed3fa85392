package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tezuka-planner/models"
	"tezuka-planner/repositories"
)

var (
	admin    = models.Actor{Email: "admin@x.com", Role: models.RoleAdmin}
	employee = models.Actor{Email: "bob@x.com", Role: models.RoleEmployee}
)

func newTestStore(t *testing.T) *StateStore {
	t.Helper()
	repo := repositories.NewStateRepository(filepath.Join(t.TempDir(), "state.json"))
	return NewStateStore(repo)
}

func strp(s string) *string { return &s }

func statusp(s models.TaskStatus) *models.TaskStatus { return &s }

func completedNotifications(store *StateStore) []*models.Notification {
	var out []*models.Notification
	for _, n := range NewNotificationService(store).GetNotificationsForActive() {
		if n.Type == models.NotificationCompleted {
			out = append(out, n)
		}
	}
	return out
}

func TestAddTask_StatusDerivedFromPriority(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	cases := []struct {
		priority models.TaskStatus
		want     models.TaskStatus
	}{
		{models.StatusInProgress, models.StatusInProgress},
		{models.StatusToStart, models.StatusToStart},
		{models.StatusCompleting, models.StatusToStart},
		{models.StatusCompleted, models.StatusToStart},
		{models.StatusUnimportant, models.StatusToStart},
	}

	for _, tc := range cases {
		task, err := tasks.AddTask(admin, models.TaskPayload{
			Title:      "t",
			AssignedTo: "bob@x.com",
			Priority:   tc.priority,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.want, task.Status, "priority %q", tc.priority)
	}
}

func TestAddTask_ExplicitStatusWins(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{
		Title:      "t",
		AssignedTo: "bob@x.com",
		Priority:   models.StatusUnimportant,
		Status:     models.StatusCompleting,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleting, task.Status)
}

func TestAddTask_MonotonicIDsAcrossDeletions(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	var prev int
	for i := 0; i < 3; i++ {
		task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: "bob@x.com"})
		require.NoError(t, err)
		assert.Greater(t, task.ID, prev)
		prev = task.ID
	}

	require.NoError(t, tasks.DeleteTask(admin, prev))

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: "bob@x.com"})
	require.NoError(t, err)
	assert.Greater(t, task.ID, prev, "deleted id must not be reused")
}

func TestAddTask_NotifiesAssignee(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)
	notifications := NewNotificationService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "Write report", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	got := notifications.GetNotificationsForActive()
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationAssigned, got[0].Type)
	assert.Equal(t, "bob@x.com", got[0].To)
	assert.Equal(t, task.ID, got[0].TaskID)
	assert.Equal(t, "Task assigned: Write report", got[0].Title)
	assert.False(t, got[0].Read)
}

func TestAddTask_SelfAssignedNoNotification(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	_, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: admin.Email})
	require.NoError(t, err)
	assert.Empty(t, NewNotificationService(store).GetNotificationsForActive())
}

func TestAddTask_Validation(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	_, err := tasks.AddTask(admin, models.TaskPayload{Title: "  ", AssignedTo: "bob@x.com"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: " "})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, tasks.GetTasksForActive())
}

func TestAddTask_EmployeeForbidden(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	_, err := tasks.AddTask(employee, models.TaskPayload{Title: "t", AssignedTo: "bob@x.com"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, tasks.GetTasksForActive())
}

func TestAddTask_InsertsAtFront(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	first, err := tasks.AddTask(admin, models.TaskPayload{Title: "first", AssignedTo: "bob@x.com"})
	require.NoError(t, err)
	second, err := tasks.AddTask(admin, models.TaskPayload{Title: "second", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	got := tasks.GetTasksForActive()
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestEditTask_NotFound(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	_, err := tasks.EditTask(admin, 42, models.TaskUpdates{Title: strp("x")})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestEditTask_ReassignNotifiesNewAssignee(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	_, err = tasks.EditTask(admin, task.ID, models.TaskUpdates{AssignedTo: strp("alice@x.com")})
	require.NoError(t, err)

	got := NewNotificationService(store).GetNotificationsForActive()
	// assigned (from AddTask) + reassigned, most recent first
	require.Len(t, got, 2)
	assert.Equal(t, models.NotificationReassigned, got[0].Type)
	assert.Equal(t, "alice@x.com", got[0].To)
}

func TestEditTask_SameAssigneeNoReassignNotification(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	_, err = tasks.EditTask(admin, task.ID, models.TaskUpdates{AssignedTo: strp("bob@x.com")})
	require.NoError(t, err)

	got := NewNotificationService(store).GetNotificationsForActive()
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationAssigned, got[0].Type)
}

func TestEditTask_CompletedNotificationRefires(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	// Two edits that both leave status at Completed append two entries:
	// every such edit counts as an event, not only the transition.
	_, err = tasks.EditTask(admin, task.ID, models.TaskUpdates{Status: statusp(models.StatusCompleted)})
	require.NoError(t, err)
	_, err = tasks.EditTask(admin, task.ID, models.TaskUpdates{Comment: strp("done"), Status: statusp(models.StatusCompleted)})
	require.NoError(t, err)

	assert.Len(t, completedNotifications(store), 2)
}

func TestEditTask_SelfAssignedCompletionSilent(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: admin.Email})
	require.NoError(t, err)

	_, err = tasks.EditTask(admin, task.ID, models.TaskUpdates{Status: statusp(models.StatusCompleted)})
	require.NoError(t, err)
	assert.Empty(t, completedNotifications(store))
}

func TestUpdateTaskStatus_CompletedScenario(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{
		Title:      "Write report",
		AssignedTo: "bob@x.com",
		Priority:   models.StatusToStart,
		CreatedBy:  "admin@x.com",
	})
	require.NoError(t, err)

	updated, err := tasks.UpdateTaskStatus(employee, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	completed := completedNotifications(store)
	require.Len(t, completed, 1)
	assert.Equal(t, "admin@x.com", completed[0].To)
}

func TestUpdateTaskStatus_EmployeeOtherTaskForbidden(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: "alice@x.com"})
	require.NoError(t, err)

	_, err = tasks.UpdateTaskStatus(employee, task.ID, models.StatusInProgress)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.StatusToStart, tasks.GetTasksForActive()[0].Status)
}

func TestToggleTaskComplete(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: "bob@x.com", Priority: models.StatusInProgress})
	require.NoError(t, err)

	toggled, err := tasks.ToggleTaskComplete(employee, task.ID, true)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.Equal(t, models.StatusCompleted, toggled.Status)

	// Unchecking resets to "To Start", not to the prior status.
	toggled, err = tasks.ToggleTaskComplete(employee, task.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)
	assert.Equal(t, models.StatusToStart, toggled.Status)
}

func TestDeleteTask_MissingLeavesSequenceUnchanged(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "keep", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	err = tasks.DeleteTask(admin, 999)
	assert.True(t, errors.Is(err, ErrTaskNotFound))

	got := tasks.GetTasksForActive()
	require.Len(t, got, 1)
	assert.Equal(t, task.ID, got[0].ID)
	assert.Equal(t, "keep", got[0].Title)
}

func TestCompletedFlagTracksStatus(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	task, err := tasks.AddTask(admin, models.TaskPayload{Title: "t", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	checkInvariant := func() {
		t.Helper()
		for _, task := range tasks.GetTasksForActive() {
			assert.Equal(t, task.Status == models.StatusCompleted, task.Completed)
		}
	}

	_, err = tasks.UpdateTaskStatus(admin, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	checkInvariant()

	_, err = tasks.EditTask(admin, task.ID, models.TaskUpdates{Status: statusp(models.StatusCompleting)})
	require.NoError(t, err)
	checkInvariant()

	// A bare completed toggle via edit must drag status along.
	completed := true
	_, err = tasks.EditTask(admin, task.ID, models.TaskUpdates{Completed: &completed})
	require.NoError(t, err)
	checkInvariant()

	_, err = tasks.ToggleTaskComplete(admin, task.ID, false)
	require.NoError(t, err)
	checkInvariant()
}

func TestTasksVisibleTo(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	_, err := tasks.AddTask(admin, models.TaskPayload{Title: "mine", AssignedTo: "bob@x.com"})
	require.NoError(t, err)
	_, err = tasks.AddTask(admin, models.TaskPayload{Title: "theirs", AssignedTo: "alice@x.com"})
	require.NoError(t, err)

	assert.Len(t, tasks.TasksVisibleTo(admin), 2)

	visible := tasks.TasksVisibleTo(employee)
	require.Len(t, visible, 1)
	assert.Equal(t, "mine", visible[0].Title)
}

func TestGetTasksForActive_ReturnsCopies(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	_, err := tasks.AddTask(admin, models.TaskPayload{Title: "Draft notes", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	got := tasks.GetTasksForActive()
	require.Len(t, got, 1)
	got[0].Title = "scribbled over"

	again := tasks.GetTasksForActive()
	require.Len(t, again, 1)
	assert.Equal(t, "Draft notes", again[0].Title)
}

func TestTaskReads_SafeUnderConcurrentEdits(t *testing.T) {
	store := newTestStore(t)
	tasks := NewTaskService(store)

	created, err := tasks.AddTask(admin, models.TaskPayload{Title: "Draft notes", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	// Reads hand out copies, so encoding a snapshot while another
	// goroutine rewrites the task must stay race-free.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			title := fmt.Sprintf("Draft notes %d", i)
			if _, err := tasks.EditTask(admin, created.ID, models.TaskUpdates{Title: &title}); err != nil {
				t.Errorf("EditTask: %v", err)
				return
			}
		}
	}()
	for i := 0; i < 200; i++ {
		if _, err := json.Marshal(tasks.GetTasksForActive()); err != nil {
			t.Errorf("Marshal: %v", err)
			break
		}
	}
	wg.Wait()
}
