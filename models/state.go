package models

import "fmt"

// BoardState is the root state tree. Workspace map keys serialize as string
// object keys, matching the persisted layout.
type BoardState struct {
	Workspaces      map[int]*Workspace `json:"workspaces"`
	ActiveWorkspace int                `json:"activeWorkspace"`
	NextTaskID      int                `json:"nextTaskId"`
}

func DefaultBoardState() *BoardState {
	return &BoardState{
		Workspaces: map[int]*Workspace{
			DefaultWorkspaceID: NewWorkspace(DefaultWorkspaceID, fmt.Sprintf("Workspace %d", DefaultWorkspaceID)),
		},
		ActiveWorkspace: DefaultWorkspaceID,
		NextTaskID:      1,
	}
}

// Normalize repairs a state tree coming from disk, an import, or a network
// snapshot so that every read afterwards can assume a resolvable active
// workspace and non-nil sequences.
func (s *BoardState) Normalize() {
	if len(s.Workspaces) == 0 {
		s.Workspaces = DefaultBoardState().Workspaces
	}
	for id, ws := range s.Workspaces {
		if ws == nil {
			ws = NewWorkspace(id, fmt.Sprintf("Workspace %d", id))
			s.Workspaces[id] = ws
		}
		ws.ID = id
		if ws.Name == "" {
			ws.Name = fmt.Sprintf("Workspace %d", id)
		}
		if ws.Tasks == nil {
			ws.Tasks = []*Task{}
		}
		if ws.Notifications == nil {
			ws.Notifications = []*Notification{}
		}
	}
	if _, ok := s.Workspaces[s.ActiveWorkspace]; !ok {
		s.ActiveWorkspace = lowestWorkspaceID(s.Workspaces)
	}
	if s.NextTaskID < 1 {
		s.NextTaskID = 1
	}
}

func lowestWorkspaceID(workspaces map[int]*Workspace) int {
	lowest := 0
	for id := range workspaces {
		if lowest == 0 || id < lowest {
			lowest = id
		}
	}
	if lowest == 0 {
		lowest = DefaultWorkspaceID
	}
	return lowest
}
