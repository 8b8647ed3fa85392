package services

import (
	"encoding/json"
	"sync"

	"tezuka-planner/logging"
	"tezuka-planner/models"
	"tezuka-planner/repositories"
)

// ChangeEvent is delivered to subscribers after every successful persist.
// External marks changes that originated outside this process (another
// context wrote the durable state, or a network snapshot replaced it).
type ChangeEvent struct {
	Key      string
	External bool
}

type Subscriber func(ChangeEvent)

// StateStore owns the canonical state tree. All reads and mutations go
// through View/Update so the single mutex covers the whole tree; every
// successful Update persists before returning, so each observable change has
// exactly one persisted version.
type StateStore struct {
	mu    sync.RWMutex
	state *models.BoardState
	repo  *repositories.StateRepository
	dirty bool

	subMu sync.Mutex
	subs  []Subscriber
}

func NewStateStore(repo *repositories.StateRepository) *StateStore {
	return &StateStore{
		state: repo.Load(),
		repo:  repo,
	}
}

// Subscribe registers a listener fired after each persisted change.
// Listeners run synchronously on the mutating goroutine, outside the state
// lock; a listener that mutates the store must do so from a new goroutine.
func (s *StateStore) Subscribe(fn Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

// View runs fn with read access to the state tree. fn must not retain
// references past the call for mutation.
func (s *StateStore) View(fn func(state *models.BoardState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

// Update runs fn with write access and persists on success. A persistence
// failure is logged and flagged, not returned: the in-memory state stays
// authoritative for the session.
func (s *StateStore) Update(fn func(state *models.BoardState) error) error {
	s.mu.Lock()
	if err := fn(s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	s.persistLocked()
	s.mu.Unlock()

	s.publish(ChangeEvent{Key: repositories.StateKey})
	return nil
}

func (s *StateStore) persistLocked() {
	if err := s.repo.Save(s.state); err != nil {
		logging.Logger.Warnf("Event ID: STATE_SAVE_FAILED, Description: Failed saving state, in-memory state will not survive reload: %v", err)
		s.dirty = true
		return
	}
	s.dirty = false
}

// Dirty reports that the last save failed, i.e. the in-memory state has
// diverged from the durable copy. Surfaced to the UI layer as a warning.
func (s *StateStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Reload discards the in-memory tree in favor of the durable copy. This is
// the cue handler for the local propagation channel: treat the change as a
// full replace, not a diff.
func (s *StateStore) Reload() {
	s.mu.Lock()
	s.state = s.repo.Load()
	s.mu.Unlock()

	s.publish(ChangeEvent{Key: repositories.StateKey, External: true})
}

// ExportState returns the whole tree as a JSON document.
func (s *StateStore) ExportState() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := json.Marshal(s.state)
	if err != nil {
		logging.Logger.Warnf("Event ID: STATE_EXPORT_FAILED, Description: Failed to serialize state: %v", err)
		return ""
	}
	return string(raw)
}

// ImportState replaces the whole tree with the given JSON document and
// persists it. Returns false on malformed input, leaving state untouched.
func (s *StateStore) ImportState(raw string) bool {
	state := &models.BoardState{}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		logging.Logger.Warnf("Event ID: STATE_IMPORT_FAILED, Description: Rejected malformed state document: %v", err)
		return false
	}
	state.Normalize()

	s.mu.Lock()
	s.state = state
	s.persistLocked()
	s.mu.Unlock()

	s.publish(ChangeEvent{Key: repositories.StateKey})
	return true
}

func (s *StateStore) publish(ev ChangeEvent) {
	s.subMu.Lock()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func activeWorkspace(state *models.BoardState) *models.Workspace {
	return state.Workspaces[state.ActiveWorkspace]
}
