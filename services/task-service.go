package services

import (
	"fmt"
	"strings"
	"time"

	"tezuka-planner/logging"
	"tezuka-planner/models"
)

type TaskService struct {
	store *StateStore
}

func NewTaskService(store *StateStore) *TaskService {
	return &TaskService{store: store}
}

// GetTasksForActive returns the active workspace's task sequence,
// most-recent-first. The tasks are copies; encoding or mutating them
// cannot race with writers holding the store lock.
func (s *TaskService) GetTasksForActive() []*models.Task {
	var tasks []*models.Task
	s.store.View(func(state *models.BoardState) {
		if ws := activeWorkspace(state); ws != nil {
			for _, t := range ws.Tasks {
				tasks = append(tasks, t.Clone())
			}
		}
	})
	return tasks
}

// TasksVisibleTo narrows the active task list for the caller: admins see
// everything, employees only the tasks assigned to them.
func (s *TaskService) TasksVisibleTo(actor models.Actor) []*models.Task {
	tasks := s.GetTasksForActive()
	if actor.IsAdmin() {
		return tasks
	}
	visible := []*models.Task{}
	for _, t := range tasks {
		if t.AssignedTo == actor.Email {
			visible = append(visible, t)
		}
	}
	return visible
}

// AddTask creates a task in the active workspace. The id comes from the
// shared monotonic counter. Status defaults from priority: "In Progress"
// stays, every other priority starts at "To Start". Assigning to someone
// other than the creator emits an "assigned" notification to the assignee.
func (s *TaskService) AddTask(actor models.Actor, payload models.TaskPayload) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	assignedTo := strings.TrimSpace(payload.AssignedTo)
	if assignedTo == "" {
		return nil, fmt.Errorf("%w: assignedTo is required", ErrValidation)
	}

	priority := payload.Priority
	if priority == "" {
		priority = models.StatusToStart
	}
	status := payload.Status
	if status == "" {
		if priority == models.StatusInProgress {
			status = models.StatusInProgress
		} else {
			status = models.StatusToStart
		}
	}
	createdBy := payload.CreatedBy
	if createdBy == "" {
		createdBy = actor.Email
	}

	var task *models.Task
	err := s.store.Update(func(state *models.BoardState) error {
		ws := activeWorkspace(state)
		if ws == nil {
			return ErrWorkspaceNotFound
		}

		task = &models.Task{
			ID:         state.NextTaskID,
			Title:      title,
			Deadline:   payload.Deadline,
			AssignedTo: assignedTo,
			Priority:   priority,
			Comment:    strings.TrimSpace(payload.Comment),
			Attachment: strings.TrimSpace(payload.Attachment),
			Status:     status,
			CreatedAt:  time.Now().UTC(),
			CreatedBy:  createdBy,
			Completed:  status == models.StatusCompleted,
		}
		state.NextTaskID++

		// Most-recent-first.
		ws.Tasks = append([]*models.Task{task}, ws.Tasks...)

		if task.AssignedTo != task.CreatedBy {
			pushNotification(ws, newNotification(
				models.NotificationAssigned,
				task.ID,
				fmt.Sprintf("Task assigned: %s", task.Title),
				task.AssignedTo,
			))
		}
		task = task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %d (%s) created by %s, assigned to %s", task.ID, task.Title, actor.Email, task.AssignedTo)
	return task, nil
}

// EditTask applies a shallow merge onto a task in the active workspace.
// Two side effects fire independently: an edit that leaves status at
// "Completed" notifies the creator every time (not only on the transition),
// and a change of assignee notifies the new assignee.
func (s *TaskService) EditTask(actor models.Actor, taskID int, updates models.TaskUpdates) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var task *models.Task
	err := s.store.Update(func(state *models.BoardState) error {
		ws := activeWorkspace(state)
		if ws == nil {
			return ErrWorkspaceNotFound
		}
		task = findTask(ws, taskID)
		if task == nil {
			return ErrTaskNotFound
		}

		prevAssignee := task.AssignedTo
		applyUpdates(task, updates)

		if task.Status == models.StatusCompleted && task.AssignedTo != task.CreatedBy {
			pushNotification(ws, newNotification(
				models.NotificationCompleted,
				task.ID,
				fmt.Sprintf("Task completed: %s", task.Title),
				task.CreatedBy,
			))
		}

		if updates.AssignedTo != nil && *updates.AssignedTo != prevAssignee {
			pushNotification(ws, newNotification(
				models.NotificationReassigned,
				task.ID,
				fmt.Sprintf("Task reassigned: %s", task.Title),
				task.AssignedTo,
			))
		}
		task = task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTaskStatus is the drag-and-drop path: sets the status, derives the
// completed flag, and notifies the creator on completion.
func (s *TaskService) UpdateTaskStatus(actor models.Actor, taskID int, status models.TaskStatus) (*models.Task, error) {
	var task *models.Task
	err := s.store.Update(func(state *models.BoardState) error {
		ws := activeWorkspace(state)
		if ws == nil {
			return ErrWorkspaceNotFound
		}
		task = findTask(ws, taskID)
		if task == nil {
			return ErrTaskNotFound
		}
		if !actor.IsAdmin() && task.AssignedTo != actor.Email {
			return ErrForbidden
		}

		task.Status = status
		task.Completed = status == models.StatusCompleted

		if task.Completed && task.CreatedBy != "" && task.AssignedTo != task.CreatedBy {
			pushNotification(ws, newNotification(
				models.NotificationCompleted,
				0,
				fmt.Sprintf("Task %q has been completed", task.Title),
				task.CreatedBy,
			))
		}
		task = task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: TASK_STATUS_CHANGED, Description: Task %d moved to %q by %s", task.ID, task.Status, actor.Email)
	return task, nil
}

// ToggleTaskComplete is sugar over an edit that sets status and completed
// together. Unchecking resets to "To Start", not to the prior status.
func (s *TaskService) ToggleTaskComplete(actor models.Actor, taskID int, completed bool) (*models.Task, error) {
	status := models.StatusToStart
	if completed {
		status = models.StatusCompleted
	}

	// Employees may toggle their own tasks, which EditTask forbids, so the
	// merge runs here under UpdateTaskStatus's permission rule.
	var task *models.Task
	err := s.store.Update(func(state *models.BoardState) error {
		ws := activeWorkspace(state)
		if ws == nil {
			return ErrWorkspaceNotFound
		}
		task = findTask(ws, taskID)
		if task == nil {
			return ErrTaskNotFound
		}
		if !actor.IsAdmin() && task.AssignedTo != actor.Email {
			return ErrForbidden
		}

		applyUpdates(task, models.TaskUpdates{Status: &status, Completed: &completed})

		if task.Status == models.StatusCompleted && task.AssignedTo != task.CreatedBy {
			pushNotification(ws, newNotification(
				models.NotificationCompleted,
				task.ID,
				fmt.Sprintf("Task completed: %s", task.Title),
				task.CreatedBy,
			))
		}
		task = task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task from the active workspace. No notification.
func (s *TaskService) DeleteTask(actor models.Actor, taskID int) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	return s.store.Update(func(state *models.BoardState) error {
		ws := activeWorkspace(state)
		if ws == nil {
			return ErrWorkspaceNotFound
		}
		for i, t := range ws.Tasks {
			if t.ID == taskID {
				ws.Tasks = append(ws.Tasks[:i], ws.Tasks[i+1:]...)
				return nil
			}
		}
		return ErrTaskNotFound
	})
}

func findTask(ws *models.Workspace, taskID int) *models.Task {
	for _, t := range ws.Tasks {
		if t.ID == taskID {
			return t
		}
	}
	return nil
}

// applyUpdates merges the set fields and then reconciles the completed flag
// so that completed == (status == "Completed") holds afterwards. An explicit
// status wins; a bare completed toggle maps to Completed / To Start.
func applyUpdates(t *models.Task, u models.TaskUpdates) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Deadline != nil {
		t.Deadline = *u.Deadline
	}
	if u.AssignedTo != nil {
		t.AssignedTo = *u.AssignedTo
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Comment != nil {
		t.Comment = *u.Comment
	}
	if u.Attachment != nil {
		t.Attachment = *u.Attachment
	}
	if u.CreatedBy != nil {
		t.CreatedBy = *u.CreatedBy
	}
	if u.Status != nil {
		t.Status = *u.Status
		t.Completed = t.Status == models.StatusCompleted
	} else if u.Completed != nil {
		t.Completed = *u.Completed
		if t.Completed {
			t.Status = models.StatusCompleted
		} else {
			t.Status = models.StatusToStart
		}
	}
}
