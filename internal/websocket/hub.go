package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a live update pushed to a community's connected clients.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     string         `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, id string, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub tracks connected clients by community. Messages never cross a
// community boundary.
type Hub struct {
	mu          sync.RWMutex
	communities map[string]map[*Client]struct{}
	logger      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		communities: make(map[string]map[*Client]struct{}),
		logger:      logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.communities[c.communityID]
	if !ok {
		set = make(map[*Client]struct{})
		h.communities[c.communityID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.communities[c.communityID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.communities, c.communityID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every client in the community.
func (h *Hub) Broadcast(communityID string, msg Message) {
	h.send(communityID, "", msg)
}

// SendToUser sends msg to the user's connections within the community.
func (h *Hub) SendToUser(communityID, userID string, msg Message) {
	h.send(communityID, userID, msg)
}

func (h *Hub) send(communityID, userID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.communities[communityID] {
		if userID != "" && c.userID != userID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop
		}
	}
}

// ClientCount returns the number of connected clients in a community.
func (h *Hub) ClientCount(communityID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.communities[communityID])
}
