package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"tezuka-planner/logging"
	"tezuka-planner/models"
)

// StateKey names the durable slot the whole root state lives under. It is
// carried on change events so observers know which state changed.
const StateKey = "tezuka_state_v1"

// StateRepository persists the entire root state as one JSON document.
// There is no partial write; every save replaces the whole file.
type StateRepository struct {
	path     string
	lastSave atomic.Int64 // unix nanos of the most recent Save
}

func NewStateRepository(path string) *StateRepository {
	return &StateRepository{path: path}
}

func (r *StateRepository) Path() string {
	return r.path
}

// Load reads the persisted state. A missing, unreadable or malformed file is
// not an error: the caller gets a fresh default state containing only the
// default workspace, and the problem is logged.
func (r *StateRepository) Load() *models.BoardState {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Logger.Warnf("Event ID: STATE_LOAD_FAILED, Description: Failed reading state file %s, falling back to default: %v", r.path, err)
		}
		return models.DefaultBoardState()
	}

	state := &models.BoardState{}
	if err := json.Unmarshal(raw, state); err != nil {
		logging.Logger.Warnf("Event ID: STATE_CORRUPT, Description: Malformed state file %s, falling back to default: %v", r.path, err)
		return models.DefaultBoardState()
	}

	state.Normalize()
	return state
}

// Save serializes the whole state and writes it atomically (temp file then
// rename), so observers never see a half-written document.
func (r *StateRepository) Save(state *models.BoardState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize state: %v", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %v", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %v", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %v", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %v", err)
	}

	r.lastSave.Store(time.Now().UnixNano())
	return nil
}

// SavedWithin reports whether this process saved inside the given window.
// The watcher uses it to tell its own writes apart from another process's.
func (r *StateRepository) SavedWithin(window time.Duration) bool {
	last := r.lastSave.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) <= window
}
