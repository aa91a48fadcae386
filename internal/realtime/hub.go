package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub tracks this instance's live connections: which clients sit in which
// conversation room, and which clients belong to which user. It knows nothing
// about other instances; the backplane covers those.
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex

	userClients map[string][]*Client
	userMu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		userClients: make(map[string][]*Client),
	}
}

// Register tracks a new connection and starts its pumps. Returns the number
// of connections the user now holds on this instance.
func (h *Hub) Register(client *Client) int {
	h.userMu.Lock()
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	count := len(h.userClients[client.UserID])
	h.userMu.Unlock()

	client.Start()

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Int("connections", count).Msg("ws: client registered")
	return count
}

// Unregister drops a connection from every room and from user tracking.
// Returns the number of connections the user still holds on this instance.
func (h *Hub) Unregister(client *Client) int {
	h.mu.Lock()
	for roomID, clients := range h.rooms {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.mu.Unlock()

	h.userMu.Lock()
	remaining := h.userClients[client.UserID][:0]
	for _, c := range h.userClients[client.UserID] {
		if c != client {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(h.userClients, client.UserID)
	} else {
		h.userClients[client.UserID] = remaining
	}
	count := len(remaining)
	h.userMu.Unlock()

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Msg("ws: client unregistered")
	return count
}

// Join adds a client to a conversation room.
func (h *Hub) Join(roomID string, client *Client) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	h.mu.Unlock()

	log.Debug().Str("roomID", roomID).Str("clientID", client.ID).Msg("ws: client joined room")
}

// Leave removes a client from a conversation room.
func (h *Hub) Leave(roomID string, client *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}

// BroadcastToRoom fans a pre-marshaled frame out to every active client in a
// room, skipping all of exceptUserID's connections when set.
func (h *Hub) BroadcastToRoom(roomID string, data []byte, exceptUserID string) {
	h.mu.RLock()
	var targets []*Client
	if clients, ok := h.rooms[roomID]; ok {
		targets = make([]*Client, 0, len(clients))
		for client := range clients {
			if exceptUserID != "" && client.UserID == exceptUserID {
				continue
			}
			if client.IsActive() {
				targets = append(targets, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.Enqueue(data)
	}
}

// SendToUser delivers a frame to every connection of a user on this instance.
func (h *Hub) SendToUser(userID string, data []byte) {
	h.userMu.RLock()
	clients := make([]*Client, len(h.userClients[userID]))
	copy(clients, h.userClients[userID])
	h.userMu.RUnlock()

	for _, client := range clients {
		if client.IsActive() {
			client.Enqueue(data)
		}
	}
}

// IsUserOnline reports whether the user holds at least one active connection
// on this instance.
func (h *Hub) IsUserOnline(userID string) bool {
	h.userMu.RLock()
	defer h.userMu.RUnlock()

	for _, client := range h.userClients[userID] {
		if client.IsActive() {
			return true
		}
	}
	return false
}

// LocalOnlineUsers filters the given ids down to those with an active
// connection here.
func (h *Hub) LocalOnlineUsers(userIDs []string) []string {
	h.userMu.RLock()
	defer h.userMu.RUnlock()

	var online []string
	for _, id := range userIDs {
		for _, client := range h.userClients[id] {
			if client.IsActive() {
				online = append(online, id)
				break
			}
		}
	}
	return online
}

// Close tears down every connection on this instance.
func (h *Hub) Close() {
	h.userMu.RLock()
	var all []*Client
	for _, clients := range h.userClients {
		all = append(all, clients...)
	}
	h.userMu.RUnlock()

	for _, client := range all {
		client.Close()
	}
	log.Info().Int("clients", len(all)).Msg("ws: hub shutdown completed")
}
