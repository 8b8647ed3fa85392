package models

// DefaultWorkspaceID marks the sentinel workspace that always exists and can
// never be deleted.
const DefaultWorkspaceID = 1

type Workspace struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Tasks         []*Task         `json:"tasks"`
	Notifications []*Notification `json:"notifications"`
}

func NewWorkspace(id int, name string) *Workspace {
	return &Workspace{
		ID:            id,
		Name:          name,
		Tasks:         []*Task{},
		Notifications: []*Notification{},
	}
}

// Clone deep-copies the workspace, tasks and notifications included.
func (w *Workspace) Clone() *Workspace {
	if w == nil {
		return nil
	}
	c := &Workspace{
		ID:            w.ID,
		Name:          w.Name,
		Tasks:         make([]*Task, 0, len(w.Tasks)),
		Notifications: make([]*Notification, 0, len(w.Notifications)),
	}
	for _, t := range w.Tasks {
		c.Tasks = append(c.Tasks, t.Clone())
	}
	for _, n := range w.Notifications {
		c.Notifications = append(c.Notifications, n.Clone())
	}
	return c
}
