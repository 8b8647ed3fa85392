package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tezuka-planner/models"
)

func TestAddWorkspace_IncreasingIDs(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	first, err := workspaces.AddWorkspace(admin, "")
	require.NoError(t, err)
	second, err := workspaces.AddWorkspace(admin, "")
	require.NoError(t, err)

	assert.Equal(t, 2, first.ID)
	assert.Equal(t, 3, second.ID)
	assert.Equal(t, "Workspace 2", first.Name)
}

func TestAddWorkspace_IDAboveMaxAfterMiddleDeletion(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	_, err := workspaces.AddWorkspace(admin, "")
	require.NoError(t, err)
	third, err := workspaces.AddWorkspace(admin, "")
	require.NoError(t, err)

	require.NoError(t, workspaces.DeleteWorkspace(admin, 2))

	next, err := workspaces.AddWorkspace(admin, "")
	require.NoError(t, err)
	assert.Greater(t, next.ID, third.ID, "freed id below the max must not come back")
}

func TestAddWorkspace_EmployeeForbidden(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	_, err := workspaces.AddWorkspace(employee, "nope")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Len(t, workspaces.GetWorkspaces(), 1)
}

func TestDeleteWorkspace_DefaultProtected(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	err := workspaces.DeleteWorkspace(admin, models.DefaultWorkspaceID)
	assert.ErrorIs(t, err, ErrWorkspaceProtected)

	got := workspaces.GetWorkspaces()
	require.Len(t, got, 1)
	assert.Equal(t, models.DefaultWorkspaceID, got[0].ID)
}

func TestDeleteWorkspace_NotFound(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	assert.ErrorIs(t, workspaces.DeleteWorkspace(admin, 7), ErrWorkspaceNotFound)
}

func TestDeleteWorkspace_RepointsActive(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	ws, err := workspaces.AddWorkspace(admin, "second")
	require.NoError(t, err)
	require.NoError(t, workspaces.SetActiveWorkspace(ws.ID))

	require.NoError(t, workspaces.DeleteWorkspace(admin, ws.ID))

	active := workspaces.GetActiveWorkspace()
	require.NotNil(t, active)
	assert.Equal(t, models.DefaultWorkspaceID, active.ID)
}

func TestGetWorkspaceByID(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	ws, err := workspaces.AddWorkspace(admin, "second")
	require.NoError(t, err)

	got := workspaces.GetWorkspaceByID(ws.ID)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Name)

	assert.Nil(t, workspaces.GetWorkspaceByID(42))
}

func TestSetActiveWorkspace_Unknown(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	assert.ErrorIs(t, workspaces.SetActiveWorkspace(9), ErrWorkspaceNotFound)
	assert.Equal(t, models.DefaultWorkspaceID, workspaces.GetActiveWorkspace().ID)
}

func TestGetWorkspaces_SortedByID(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)

	for i := 0; i < 3; i++ {
		_, err := workspaces.AddWorkspace(admin, "")
		require.NoError(t, err)
	}

	got := workspaces.GetWorkspaces()
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].ID, got[i].ID)
	}
}

func TestWorkspacesIsolateTasks(t *testing.T) {
	store := newTestStore(t)
	workspaces := NewWorkspaceService(store)
	tasks := NewTaskService(store)

	_, err := tasks.AddTask(admin, models.TaskPayload{Title: "in default", AssignedTo: "bob@x.com"})
	require.NoError(t, err)

	ws, err := workspaces.AddWorkspace(admin, "second")
	require.NoError(t, err)
	require.NoError(t, workspaces.SetActiveWorkspace(ws.ID))

	assert.Empty(t, tasks.GetTasksForActive())

	// A task is only addressable while its owning workspace is active.
	_, err = tasks.EditTask(admin, 1, models.TaskUpdates{Title: strp("x")})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
