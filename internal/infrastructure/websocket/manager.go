package websocket

import (
	"sync"

	"marketchat/pkg/logger"
)

// Manager holds the process-wide realtime state: which user is online on
// which connection (presence) and which connections subscribe to which rooms
// (membership). It is rebuilt from nothing on restart; a reconnect
// re-establishes both. Not shared across processes.
type Manager struct {
	mu sync.RWMutex

	// clients maps a user id to their single active connection. A later
	// connection from the same user evicts the earlier one.
	clients map[string]*Client

	// rooms maps a room id to the set of subscribed connections.
	rooms map[string]map[*Client]struct{}

	// subscriptions maps a connection to its room set, for teardown.
	subscriptions map[*Client]map[string]struct{}
}

func NewManager() *Manager {
	return &Manager{
		clients:       make(map[string]*Client),
		rooms:         make(map[string]map[*Client]struct{}),
		subscriptions: make(map[*Client]map[string]struct{}),
	}
}

// Register records the client as the user's active connection. Any previous
// connection for the same user is evicted and torn down.
func (m *Manager) Register(client *Client) {
	m.mu.Lock()
	prev := m.clients[client.UserID]
	m.clients[client.UserID] = client
	m.subscriptions[client] = make(map[string]struct{})
	if prev != nil {
		m.removeLocked(prev)
	}
	m.mu.Unlock()

	if prev != nil {
		prev.CloseSend()
		logger.Info("Evicted earlier connection for user %s", client.UserID)
	}
	logger.Info("Client registered: %s", client.UserID)
}

// Unregister drops the client's subscriptions and, only if this client is
// still the user's registered connection, its presence entry. The guard keeps
// a stale disconnect from evicting a newer connection.
func (m *Manager) Unregister(client *Client) {
	m.mu.Lock()
	if current, ok := m.clients[client.UserID]; ok && current == client {
		delete(m.clients, client.UserID)
	}
	m.removeLocked(client)
	m.mu.Unlock()

	client.CloseSend()
	logger.Info("Client unregistered: %s", client.UserID)
}

// removeLocked drops every subscription held by client. Caller holds mu.
func (m *Manager) removeLocked(client *Client) {
	for roomID := range m.subscriptions[client] {
		delete(m.rooms[roomID], client)
		if len(m.rooms[roomID]) == 0 {
			delete(m.rooms, roomID)
		}
	}
	delete(m.subscriptions, client)
}

// Subscribe adds the client to a room's delivery set.
func (m *Manager) Subscribe(client *Client, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs, ok := m.subscriptions[client]
	if !ok {
		// Not registered (already torn down); ignore.
		return
	}
	subs[roomID] = struct{}{}

	if m.rooms[roomID] == nil {
		m.rooms[roomID] = make(map[*Client]struct{})
	}
	m.rooms[roomID][client] = struct{}{}
}

// Unsubscribe removes the client from a room's delivery set. Always safe.
func (m *Manager) Unsubscribe(client *Client, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subscriptions[client], roomID)
	delete(m.rooms[roomID], client)
	if len(m.rooms[roomID]) == 0 {
		delete(m.rooms, roomID)
	}
}

// BroadcastToRoom delivers a payload to every subscriber of the room except
// the sender. Clients that cannot keep up are disconnected rather than
// allowed to stall the broadcast.
func (m *Manager) BroadcastToRoom(roomID string, payload []byte, except *Client) {
	m.mu.RLock()
	targets := make([]*Client, 0, len(m.rooms[roomID]))
	for client := range m.rooms[roomID] {
		if client != except {
			targets = append(targets, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range targets {
		if !client.Deliver(payload) {
			logger.Warn("Dropping slow client %s from room %s", client.UserID, roomID)
			m.Unregister(client)
		}
	}
}

// SendToUser delivers a payload to the user's active connection, regardless
// of room subscriptions. Reports whether the user was online.
func (m *Manager) SendToUser(userID string, payload []byte) bool {
	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	if !client.Deliver(payload) {
		logger.Warn("Dropping slow client %s", userID)
		m.Unregister(client)
		return false
	}

	return true
}

// IsOnline reports whether the user currently has a registered connection.
func (m *Manager) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.clients[userID]
	return ok
}

// Subscribed reports whether the client currently subscribes to the room.
func (m *Manager) Subscribed(client *Client, roomID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.subscriptions[client][roomID]
	return ok
}
