package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tezuka-planner/models"
	"tezuka-planner/services"
)

// BoardHandler exposes the core read/write APIs over HTTP to UI consumers.
type BoardHandler struct {
	store         *services.StateStore
	workspaces    *services.WorkspaceService
	tasks         *services.TaskService
	notifications *services.NotificationService
}

func NewBoardHandler(store *services.StateStore, workspaces *services.WorkspaceService, tasks *services.TaskService, notifications *services.NotificationService) *BoardHandler {
	return &BoardHandler{
		store:         store,
		workspaces:    workspaces,
		tasks:         tasks,
		notifications: notifications,
	}
}

func (h *BoardHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/workspaces", h.GetWorkspaces).Methods(http.MethodGet)
	r.HandleFunc("/api/workspaces", h.CreateWorkspace).Methods(http.MethodPost)
	r.HandleFunc("/api/workspaces/{id}", h.DeleteWorkspace).Methods(http.MethodDelete)
	r.HandleFunc("/api/workspaces/{id}/activate", h.ActivateWorkspace).Methods(http.MethodPost)

	r.HandleFunc("/api/tasks", h.GetTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks", h.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/status", h.ChangeTaskStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{taskID}", h.EditTask).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{taskID}", h.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/api/tasks/{taskID}/complete", h.ToggleTaskComplete).Methods(http.MethodPost)

	r.HandleFunc("/api/notifications", h.GetNotifications).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications", h.ClearNotifications).Methods(http.MethodDelete)
	r.HandleFunc("/api/notifications/read", h.MarkNotificationsRead).Methods(http.MethodPost)

	r.HandleFunc("/api/state/export", h.ExportState).Methods(http.MethodGet)
	r.HandleFunc("/api/state/import", h.ImportState).Methods(http.MethodPost)
}

// serviceError maps the core's sentinel errors onto HTTP statuses.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
	case errors.Is(err, services.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrWorkspaceProtected):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrTaskNotFound), errors.Is(err, services.ErrWorkspaceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *BoardHandler) GetWorkspaces(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFromRequest(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, h.workspaces.GetWorkspaces())
}

func (h *BoardHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var request struct {
		Name string `json:"name"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&request)
	}

	ws, err := h.workspaces.AddWorkspace(actor, request.Name)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (h *BoardHandler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid workspace ID format", http.StatusBadRequest)
		return
	}

	if err := h.workspaces.DeleteWorkspace(actor, id); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Workspace deleted successfully"})
}

func (h *BoardHandler) ActivateWorkspace(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFromRequest(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid workspace ID format", http.StatusBadRequest)
		return
	}

	if err := h.workspaces.SetActiveWorkspace(id); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.workspaces.GetActiveWorkspace())
}

// GetTasks returns the active workspace's tasks visible to the caller:
// everything for admins, own tasks for employees.
func (h *BoardHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, h.tasks.TasksVisibleTo(actor))
}

func (h *BoardHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var payload models.TaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.tasks.AddTask(actor, payload)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *BoardHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	taskID, err := strconv.Atoi(mux.Vars(r)["taskID"])
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}

	var updates models.TaskUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.tasks.EditTask(actor, taskID, updates)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *BoardHandler) ChangeTaskStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var request struct {
		TaskID int               `json:"taskId"`
		Status models.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	task, err := h.tasks.UpdateTaskStatus(actor, request.TaskID, request.Status)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *BoardHandler) ToggleTaskComplete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	taskID, err := strconv.Atoi(mux.Vars(r)["taskID"])
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}

	var request struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.tasks.ToggleTaskComplete(actor, taskID, request.Completed)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *BoardHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	taskID, err := strconv.Atoi(mux.Vars(r)["taskID"])
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}

	if err := h.tasks.DeleteTask(actor, taskID); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// GetNotifications returns the caller's notifications in the active
// workspace; ?all=true gives an admin the raw unfiltered sequence.
func (h *BoardHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if r.URL.Query().Get("all") == "true" {
		if err := checkRole(actor, models.RoleAdmin); err != nil {
			http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
			return
		}
		notifications := h.notifications.GetNotificationsForActive()
		if notifications == nil {
			notifications = []*models.Notification{}
		}
		writeJSON(w, http.StatusOK, notifications)
		return
	}

	notifications := h.notifications.NotificationsFor(actor.Email)
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *BoardHandler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFromRequest(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	h.notifications.MarkNotificationsRead()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notifications marked as read"})
}

// ClearNotifications clears the caller's entries; ?all=true lets an admin
// clear the whole sequence.
func (h *BoardHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if r.URL.Query().Get("all") == "true" {
		if err := checkRole(actor, models.RoleAdmin); err != nil {
			http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
			return
		}
		h.notifications.ClearNotifications()
	} else {
		h.notifications.ClearNotificationsFor(actor.Email)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notifications cleared"})
}

func (h *BoardHandler) ExportState(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err := checkRole(actor, models.RoleAdmin); err != nil {
		http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(h.store.ExportState()))
}

func (h *BoardHandler) ImportState(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err := checkRole(actor, models.RoleAdmin); err != nil {
		http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if !h.store.ImportState(string(raw)) {
		http.Error(w, "Malformed state document", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "State imported successfully"})
}
