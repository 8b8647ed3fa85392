package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"tezuka-planner/logging"
	"tezuka-planner/models"
)

const (
	MessageInitState   = "init_state"
	MessageUpdateState = "update_state"
	MessageSyncState   = "sync_state"
)

// Envelope is the wire frame for every relay message.
type Envelope struct {
	Type  string          `json:"type"`
	State json.RawMessage `json:"state,omitempty"`
}

// Hub holds the one shared in-memory state and every connected client.
// The state is a map of top-level keys to raw JSON, so merging an incoming
// update replaces whole keys: last writer wins at top-level-key granularity.
// Nothing is persisted; a restart loses all state.
type Hub struct {
	mu      sync.Mutex
	state   map[string]json.RawMessage
	clients map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		state:   seedState(),
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			// Any client may connect and overwrite global state; the relay
			// carries no identity or auth.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func seedState() map[string]json.RawMessage {
	raw, err := json.Marshal(models.DefaultBoardState())
	if err != nil {
		logging.Logger.Fatalf("Event ID: RELAY_SEED_FAILED, Description: Failed to seed relay state: %v", err)
	}
	state := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &state); err != nil {
		logging.Logger.Fatalf("Event ID: RELAY_SEED_FAILED, Description: Failed to seed relay state: %v", err)
	}
	return state
}

// HandleWS upgrades the connection, sends the current snapshot, and then
// serves merge requests until the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}
	defer conn.Close()

	h.register(conn)
	defer h.unregister(conn)

	logging.Logger.Infof("Event ID: CLIENT_CONNECTED, Description: Client connected from %s, %d connected", r.RemoteAddr, h.ClientCount())

	if err := h.sendSnapshot(conn, MessageInitState); err != nil {
		logging.Logger.Warnf("Event ID: INIT_STATE_FAILED, Description: Failed sending init_state: %v", err)
		return
	}

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			logging.Logger.Infof("Event ID: CLIENT_DISCONNECTED, Description: Client %s disconnected: %v", r.RemoteAddr, err)
			return
		}
		if env.Type != MessageUpdateState {
			continue
		}
		if err := h.Merge(env.State); err != nil {
			logging.Logger.Warnf("Event ID: MERGE_REJECTED, Description: Rejected update_state payload: %v", err)
			continue
		}
		// Post-merge broadcast goes to every client, including the sender.
		h.broadcastSnapshot()
	}
}

// Merge shallow-merges the incoming document's top-level keys over the
// shared state.
func (h *Hub) Merge(patch json.RawMessage) error {
	incoming := make(map[string]json.RawMessage)
	if err := json.Unmarshal(patch, &incoming); err != nil {
		return fmt.Errorf("malformed state patch: %v", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for key, value := range incoming {
		h.state[key] = value
	}
	return nil
}

// Snapshot returns the current shared state as one JSON document.
func (h *Hub) Snapshot() json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() json.RawMessage {
	raw, err := json.Marshal(h.state)
	if err != nil {
		logging.Logger.Warnf("Event ID: SNAPSHOT_FAILED, Description: Failed to serialize relay state: %v", err)
		return json.RawMessage("{}")
	}
	return raw
}

func (h *Hub) sendSnapshot(conn *websocket.Conn, msgType string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return conn.WriteJSON(Envelope{Type: msgType, State: h.snapshotLocked()})
}

// broadcastSnapshot fans the merged state out to all clients. Writes happen
// under the hub lock, which also serializes concurrent writers per
// connection.
func (h *Hub) broadcastSnapshot() {
	h.mu.Lock()
	defer h.mu.Unlock()

	env := Envelope{Type: MessageSyncState, State: h.snapshotLocked()}
	for conn := range h.clients {
		if err := conn.WriteJSON(env); err != nil {
			logging.Logger.Warnf("Event ID: BROADCAST_FAILED, Description: Dropping client after failed write: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
