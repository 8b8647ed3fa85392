package models

import "time"

type NotificationType string

const (
	NotificationAssigned   NotificationType = "assigned"
	NotificationReassigned NotificationType = "reassigned"
	NotificationCompleted  NotificationType = "completed"
	NotificationGeneric    NotificationType = "generic"
)

// Notification is generated as a side effect of task mutations and owned by
// the workspace that produced it. TaskID is a non-owning reference; the
// completion path written by status changes leaves it unset.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type,omitempty"`
	TaskID    int              `json:"taskId,omitempty"`
	Title     string           `json:"title"`
	To        string           `json:"to"`
	CreatedAt time.Time        `json:"createdAt"`
	Read      bool             `json:"read"`
}

// Clone returns an independent copy.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
