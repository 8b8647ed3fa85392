package services

import (
	"fmt"
	"sync/atomic"
	"time"

	"tezuka-planner/models"
)

// notifSeq disambiguates notifications generated within the same instant;
// one edit can emit two.
var notifSeq atomic.Int64

func newNotification(kind models.NotificationType, taskID int, title, to string) *models.Notification {
	return &models.Notification{
		ID:        fmt.Sprintf("n-%d-%d", time.Now().UnixNano(), notifSeq.Add(1)),
		Type:      kind,
		TaskID:    taskID,
		Title:     title,
		To:        to,
		CreatedAt: time.Now().UTC(),
		Read:      false,
	}
}

// pushNotification inserts at the front; the sequence is most-recent-first.
// Repeated triggers are kept as separate entries, each one is a real event.
func pushNotification(ws *models.Workspace, n *models.Notification) {
	ws.Notifications = append([]*models.Notification{n}, ws.Notifications...)
}

type NotificationService struct {
	store *StateStore
}

func NewNotificationService(store *StateStore) *NotificationService {
	return &NotificationService{store: store}
}

// GetNotificationsForActive returns the raw sequence of the active
// workspace as copies; filtering by recipient before display is the
// caller's job.
func (s *NotificationService) GetNotificationsForActive() []*models.Notification {
	var notifications []*models.Notification
	s.store.View(func(state *models.BoardState) {
		if ws := activeWorkspace(state); ws != nil {
			for _, n := range ws.Notifications {
				notifications = append(notifications, n.Clone())
			}
		}
	})
	return notifications
}

// NotificationsFor filters the active workspace's sequence by recipient.
func (s *NotificationService) NotificationsFor(recipient string) []*models.Notification {
	var notifications []*models.Notification
	s.store.View(func(state *models.BoardState) {
		ws := activeWorkspace(state)
		if ws == nil {
			return
		}
		for _, n := range ws.Notifications {
			if n.To == recipient {
				notifications = append(notifications, n.Clone())
			}
		}
	})
	return notifications
}

func (s *NotificationService) UnreadCountFor(recipient string) int {
	count := 0
	s.store.View(func(state *models.BoardState) {
		ws := activeWorkspace(state)
		if ws == nil {
			return
		}
		for _, n := range ws.Notifications {
			if n.To == recipient && !n.Read {
				count++
			}
		}
	})
	return count
}

// MarkNotificationsRead marks every notification in the active workspace
// only, not globally.
func (s *NotificationService) MarkNotificationsRead() {
	s.store.Update(func(state *models.BoardState) error {
		if ws := activeWorkspace(state); ws != nil {
			for _, n := range ws.Notifications {
				n.Read = true
			}
		}
		return nil
	})
}

// ClearNotifications drops the active workspace's whole sequence.
func (s *NotificationService) ClearNotifications() {
	s.store.Update(func(state *models.BoardState) error {
		if ws := activeWorkspace(state); ws != nil {
			ws.Notifications = []*models.Notification{}
		}
		return nil
	})
}

// ClearNotificationsFor removes only the recipient's entries, leaving
// everyone else's in place.
func (s *NotificationService) ClearNotificationsFor(recipient string) {
	s.store.Update(func(state *models.BoardState) error {
		ws := activeWorkspace(state)
		if ws == nil {
			return nil
		}
		kept := []*models.Notification{}
		for _, n := range ws.Notifications {
			if n.To != recipient {
				kept = append(kept, n)
			}
		}
		ws.Notifications = kept
		return nil
	})
}

// AddNotification is the generic helper for UI-driven notifications.
func (s *NotificationService) AddNotification(to, title string) {
	s.store.Update(func(state *models.BoardState) error {
		if ws := activeWorkspace(state); ws != nil {
			pushNotification(ws, newNotification(models.NotificationGeneric, 0, title, to))
		}
		return nil
	})
}
