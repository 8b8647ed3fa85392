package models

import "time"

type TaskStatus string

const (
	StatusToStart     TaskStatus = "To Start"
	StatusInProgress  TaskStatus = "In Progress"
	StatusCompleting  TaskStatus = "Completing"
	StatusCompleted   TaskStatus = "Completed"
	StatusUnimportant TaskStatus = "Unimportant"
)

// Task ids come from the shared nextTaskId counter, not per-workspace.
type Task struct {
	ID         int        `json:"id"`
	Title      string     `json:"title"`
	Deadline   string     `json:"deadline"`
	AssignedTo string     `json:"assignedTo"`
	Priority   TaskStatus `json:"priority"`
	Comment    string     `json:"comment"`
	Attachment string     `json:"attachment"`
	Status     TaskStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	CreatedBy  string     `json:"createdBy,omitempty"`
	Completed  bool       `json:"completed"`
}

// Clone returns an independent copy so callers never hold a pointer into
// the live state tree.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// TaskPayload carries the fields for creating a task. Status may be left
// empty; it is then derived from Priority.
type TaskPayload struct {
	Title      string     `json:"title"`
	Deadline   string     `json:"deadline"`
	AssignedTo string     `json:"assignedTo"`
	Priority   TaskStatus `json:"priority"`
	Comment    string     `json:"comment"`
	Attachment string     `json:"attachment"`
	Status     TaskStatus `json:"status"`
	CreatedBy  string     `json:"createdBy"`
}

// TaskUpdates is a shallow field merge for editing; nil means "leave as is".
type TaskUpdates struct {
	Title      *string     `json:"title,omitempty"`
	Deadline   *string     `json:"deadline,omitempty"`
	AssignedTo *string     `json:"assignedTo,omitempty"`
	Priority   *TaskStatus `json:"priority,omitempty"`
	Comment    *string     `json:"comment,omitempty"`
	Attachment *string     `json:"attachment,omitempty"`
	Status     *TaskStatus `json:"status,omitempty"`
	CreatedBy  *string     `json:"createdBy,omitempty"`
	Completed  *bool       `json:"completed,omitempty"`
}
