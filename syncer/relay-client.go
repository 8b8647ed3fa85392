// Package syncer is the network side of the sync propagator: it pushes the
// whole local state to the relay and overwrites the local store with every
// snapshot the relay broadcasts back.
package syncer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"

	"tezuka-planner/logging"
	"tezuka-planner/relay"
	"tezuka-planner/services"
)

type RelayClient struct {
	url   string
	store *services.StateStore

	writeMu sync.Mutex
	conn    *websocket.Conn
	breaker *gobreaker.CircuitBreaker

	// applying is set while a received snapshot is being written into the
	// local store, so the change subscriber does not echo it back.
	applying  atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewRelayClient wires a client against the relay URL. With autoPush the
// client subscribes to the store and pushes the full state after every
// local change; otherwise pushes happen only via PushState.
func NewRelayClient(url string, store *services.StateStore, autoPush bool) *RelayClient {
	c := &RelayClient{
		url:   url,
		store: store,
		done:  make(chan struct{}),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "relay-cb",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	if autoPush {
		store.Subscribe(func(ev services.ChangeEvent) {
			if ev.External || c.applying.Load() {
				return
			}
			go func() {
				if err := c.PushState(); err != nil {
					logging.Logger.Warnf("Event ID: STATE_PUSH_FAILED, Description: Failed pushing state to relay: %v", err)
				}
			}()
		})
	}

	return c
}

// Connect dials the relay and starts consuming broadcasts. The first
// init_state snapshot replaces the local state before Connect returns the
// read loop to the background.
func (c *RelayClient) Connect() error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to relay at %s: %v", c.url, err)
		}
		c.conn = conn
		return nil, nil
	})
	if err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: RELAY_CONNECTED, Description: Connected to relay at %s", c.url)
	go c.readLoop()
	return nil
}

func (c *RelayClient) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		var env relay.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			logging.Logger.Warnf("Event ID: RELAY_READ_FAILED, Description: Relay connection lost: %v", err)
			return
		}

		switch env.Type {
		case relay.MessageInitState, relay.MessageSyncState:
			c.apply(string(env.State))
		}
	}
}

// apply overwrites the local store with the received snapshot. The relay
// echoes our own updates back; the applying flag keeps that echo from being
// pushed out again.
func (c *RelayClient) apply(snapshot string) {
	c.applying.Store(true)
	defer c.applying.Store(false)

	if !c.store.ImportState(snapshot) {
		logging.Logger.Warnf("Event ID: SYNC_STATE_REJECTED, Description: Relay sent a snapshot the store could not parse")
	}
}

// PushState sends the entire local state as an update_state merge request.
// There is no acknowledgement; the merged result arrives as a sync_state
// broadcast like any other change.
func (c *RelayClient) PushState() error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		if c.conn == nil {
			return nil, fmt.Errorf("not connected to relay")
		}
		env := relay.Envelope{
			Type:  relay.MessageUpdateState,
			State: []byte(c.store.ExportState()),
		}
		return nil, c.conn.WriteJSON(env)
	})
	return err
}

// Close is idempotent; a second call is a no-op.
func (c *RelayClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}
