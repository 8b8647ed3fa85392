package services

import (
	"fmt"
	"sort"

	"tezuka-planner/logging"
	"tezuka-planner/models"
)

type WorkspaceService struct {
	store *StateStore
}

func NewWorkspaceService(store *StateStore) *WorkspaceService {
	return &WorkspaceService{store: store}
}

// GetWorkspaces returns all workspaces ordered by ascending id. Like every
// read API on the store, it hands out deep copies of the state tree.
func (s *WorkspaceService) GetWorkspaces() []*models.Workspace {
	var workspaces []*models.Workspace
	s.store.View(func(state *models.BoardState) {
		for _, ws := range state.Workspaces {
			workspaces = append(workspaces, ws.Clone())
		}
	})
	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].ID < workspaces[j].ID
	})
	return workspaces
}

// GetWorkspaceByID looks a workspace up by id; nil when absent.
func (s *WorkspaceService) GetWorkspaceByID(id int) *models.Workspace {
	var ws *models.Workspace
	s.store.View(func(state *models.BoardState) {
		ws = state.Workspaces[id].Clone()
	})
	return ws
}

func (s *WorkspaceService) GetActiveWorkspace() *models.Workspace {
	var ws *models.Workspace
	s.store.View(func(state *models.BoardState) {
		ws = activeWorkspace(state).Clone()
	})
	return ws
}

func (s *WorkspaceService) SetActiveWorkspace(id int) error {
	return s.store.Update(func(state *models.BoardState) error {
		if _, ok := state.Workspaces[id]; !ok {
			return ErrWorkspaceNotFound
		}
		state.ActiveWorkspace = id
		return nil
	})
}

// AddWorkspace allocates max(existing ids)+1, so a freed id below the
// current maximum is never handed out again.
func (s *WorkspaceService) AddWorkspace(actor models.Actor, name string) (*models.Workspace, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var created *models.Workspace
	err := s.store.Update(func(state *models.BoardState) error {
		id := nextWorkspaceID(state)
		if name == "" {
			name = fmt.Sprintf("Workspace %d", id)
		}
		created = models.NewWorkspace(id, name)
		state.Workspaces[id] = created
		created = created.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: WORKSPACE_CREATED, Description: Workspace %d (%s) created by %s", created.ID, created.Name, actor.Email)
	return created, nil
}

// DeleteWorkspace removes a workspace. Workspace 1 is protected. If the
// active pointer dangles afterwards it is repointed to the lowest surviving
// id; should the store somehow end up empty, the default workspace is
// recreated.
func (s *WorkspaceService) DeleteWorkspace(actor models.Actor, id int) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	err := s.store.Update(func(state *models.BoardState) error {
		if id == models.DefaultWorkspaceID {
			return ErrWorkspaceProtected
		}
		if _, ok := state.Workspaces[id]; !ok {
			return ErrWorkspaceNotFound
		}

		delete(state.Workspaces, id)
		state.Normalize()
		return nil
	})
	if err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: WORKSPACE_DELETED, Description: Workspace %d deleted by %s", id, actor.Email)
	return nil
}

func nextWorkspaceID(state *models.BoardState) int {
	max := 0
	for id := range state.Workspaces {
		if id > max {
			max = id
		}
	}
	return max + 1
}
