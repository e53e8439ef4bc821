package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// ConnectionManager owns every live WebSocket client and fans broker
// payloads out to them. The supervisor is a single process, so one
// manager instance sees all subscribers.
type ConnectionManager struct {
	mu    sync.RWMutex
	conns map[string]*Connection // connection_id → connection

	// channelMu guards both maps below. channels maps a channel name to
	// the connection IDs subscribed to it; relays holds the broker cancel
	// func per channel. A relay goroutine exists exactly while its channel
	// has at least one subscriber.
	channelMu sync.RWMutex
	channels  map[string]map[string]bool
	relays    map[string]func()

	broker *Broker

	writeTimeout time.Duration
}

// Connection is one WebSocket client.
//
// subscriptions is deliberately unsynchronized: every access happens on
// the goroutine running HandleConnection for this connection (the read
// loop and its deferred cleanup). Any future cross-goroutine mutation
// needs a mutex here first.
type Connection struct {
	ID            string
	Conn          *websocket.Conn
	subscriptions map[string]bool
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewConnectionManager wires a manager to the broker it relays from.
func NewConnectionManager(broker *Broker, writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		conns:        make(map[string]*Connection),
		channels:     make(map[string]map[string]bool),
		relays:       make(map[string]func()),
		broker:       broker,
		writeTimeout: writeTimeout,
	}
}

// HandleConnection runs a client's session: greets it with
// connection.established, then serves subscribe/unsubscribe/ping frames
// until the socket closes. Called by the /ws handler after the upgrade;
// blocks for the connection's lifetime.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	c := &Connection{
		ID:            uuid.New().String(),
		Conn:          conn,
		subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
	}

	m.addConnection(c)
	defer m.removeConnection(c)

	m.writeJSON(c, map[string]string{
		"type":          "connection.established",
		"connection_id": c.ID,
	})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return // closed or errored; cleanup runs in the defer
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Ignoring malformed WebSocket frame",
				"connection_id", c.ID, "error", err)
			continue
		}
		m.handleMessage(c, &msg)
	}
}

// handleMessage serves one client frame.
func (m *ConnectionManager) handleMessage(c *Connection, msg *ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.Channel == "" {
			m.writeJSON(c, map[string]string{"type": "error", "message": "channel is required for subscribe"})
			return
		}
		m.subscribe(c, msg.Channel)
		m.writeJSON(c, map[string]string{
			"type":    "subscription.confirmed",
			"channel": msg.Channel,
		})

	case "unsubscribe":
		if msg.Channel == "" {
			m.writeJSON(c, map[string]string{"type": "error", "message": "channel is required for unsubscribe"})
			return
		}
		m.unsubscribe(c, msg.Channel)

	case "ping":
		m.writeJSON(c, map[string]string{"type": "pong"})
	}
}

// subscribe adds the connection to a channel, opening the channel's
// broker relay if it is the first subscriber.
func (m *ConnectionManager) subscribe(c *Connection, channel string) {
	m.channelMu.Lock()
	if _, ok := m.channels[channel]; !ok {
		m.channels[channel] = make(map[string]bool)
		payloads, cancel := m.broker.Subscribe(channel)
		m.relays[channel] = cancel
		go m.relay(channel, payloads)
	}
	m.channels[channel][c.ID] = true
	m.channelMu.Unlock()

	c.subscriptions[channel] = true
}

// unsubscribe drops the connection from a channel. The last subscriber
// out cancels the broker relay. Cancel only closes the relay's delivery
// channel, so holding channelMu here cannot deadlock against a relay
// blocked inside Broadcast.
func (m *ConnectionManager) unsubscribe(c *Connection, channel string) {
	m.channelMu.Lock()
	if ids, ok := m.channels[channel]; ok {
		delete(ids, c.ID)
		if len(ids) == 0 {
			delete(m.channels, channel)
			if cancel, ok := m.relays[channel]; ok {
				delete(m.relays, channel)
				cancel()
			}
		}
	}
	m.channelMu.Unlock()

	delete(c.subscriptions, channel)
}

// relay drains one broker subscription into Broadcast until the
// subscription is cancelled.
func (m *ConnectionManager) relay(channel string, payloads <-chan []byte) {
	for p := range payloads {
		m.Broadcast(channel, p)
	}
}

// Broadcast writes an event to every connection subscribed to channel.
// Both locks are released before any socket write, so a stalled client
// costs at most writeTimeout and never blocks subscribe/unsubscribe or
// connection churn.
func (m *ConnectionManager) Broadcast(channel string, event []byte) {
	m.channelMu.RLock()
	ids := make([]string, 0, len(m.channels[channel]))
	for id := range m.channels[channel] {
		ids = append(ids, id)
	}
	m.channelMu.RUnlock()
	if len(ids) == 0 {
		return
	}

	m.mu.RLock()
	targets := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range targets {
		if err := m.write(c, event); err != nil {
			slog.Warn("Dropping event for WebSocket client",
				"connection_id", c.ID, "error", err)
		}
	}
}

// ActiveConnections reports how many clients are currently connected.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// subscriberCount lets tests poll channel membership instead of sleeping.
func (m *ConnectionManager) subscriberCount(channel string) int {
	m.channelMu.RLock()
	defer m.channelMu.RUnlock()
	return len(m.channels[channel])
}

func (m *ConnectionManager) addConnection(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c.ID] = c
}

// removeConnection tears a client down: leaves all channels, forgets the
// connection, and closes the socket.
func (m *ConnectionManager) removeConnection(c *Connection) {
	for ch := range c.subscriptions {
		m.unsubscribe(c, ch)
	}

	m.mu.Lock()
	delete(m.conns, c.ID)
	m.mu.Unlock()

	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}

func (m *ConnectionManager) writeJSON(c *Connection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal WebSocket message",
			"connection_id", c.ID, "error", err)
		return
	}
	if err := m.write(c, data); err != nil {
		slog.Warn("Failed to write WebSocket message",
			"connection_id", c.ID, "error", err)
	}
}

// write sends one text frame, bounded by the configured write timeout.
func (m *ConnectionManager) write(c *Connection, data []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	return c.Conn.Write(ctx, websocket.MessageText, data)
}
