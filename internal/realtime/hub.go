package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Hub tracks live clients by user and by conversation room, and fans events
// out to them. It is safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	users    map[uint]map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
	presence Presence
	logger   *slog.Logger
}

// NewHub creates a hub. A nil presence tracks online state in-process only.
func NewHub(presence Presence, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		users:  make(map[uint]map[*Client]struct{}),
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
	if presence == nil {
		presence = localPresence{h}
	}
	h.presence = presence
	return h
}

// Presence returns the tracker the hub reports connects and disconnects to
func (h *Hub) Presence() Presence {
	return h.presence
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.users[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.UserID] = set
	}
	set[c] = struct{}{}
	first := len(set) == 1
	h.mu.Unlock()

	connectionsGauge.Inc()
	if first {
		h.touchPresence(c.UserID, true)
	}
	h.logger.Debug("client connected", "user_id", c.UserID, "client_id", c.ID)
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.users[c.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := set[c]; !member {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	last := len(set) == 0
	if last {
		delete(h.users, c.UserID)
	}
	c.mu.Lock()
	rooms := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	c.mu.Unlock()
	for _, id := range rooms {
		if members, ok := h.rooms[id]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, id)
			}
		}
	}
	h.mu.Unlock()

	c.close()
	connectionsGauge.Dec()
	if last {
		h.touchPresence(c.UserID, false)
	}
	h.logger.Debug("client disconnected", "user_id", c.UserID, "client_id", c.ID)
}

// Join adds a registered client to a conversation room
func (h *Hub) Join(c *Client, conversationID string) {
	if conversationID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[c.UserID][c]; !ok {
		return
	}
	members, ok := h.rooms[conversationID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[conversationID] = members
	}
	members[c] = struct{}{}
	c.mu.Lock()
	c.rooms[conversationID] = struct{}{}
	c.mu.Unlock()
}

// PublishToUser delivers to every connection of userID
func (h *Hub) PublishToUser(userID uint, event Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.deliver(targets, event)
}

// PublishToConversation delivers to every connection that joined the room
func (h *Hub) PublishToConversation(conversationID string, event Event) {
	h.deliver(h.roomMembers(conversationID, nil), event)
}

// relay forwards a client event to the rest of a room the sender has joined
func (h *Hub) relay(from *Client, conversationID string, event Event) {
	if conversationID == "" {
		return
	}
	from.mu.Lock()
	_, joined := from.rooms[conversationID]
	from.mu.Unlock()
	if !joined {
		return
	}
	h.deliver(h.roomMembers(conversationID, from), event)
}

func (h *Hub) roomMembers(conversationID string, except *Client) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := make([]*Client, 0, len(h.rooms[conversationID]))
	for c := range h.rooms[conversationID] {
		if c != except {
			targets = append(targets, c)
		}
	}
	return targets
}

func (h *Hub) deliver(targets []*Client, event Event) {
	if len(targets) == 0 {
		eventsTotal.WithLabelValues(event.Type, "offline").Inc()
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", "type", event.Type, "error", err)
		return
	}
	for _, c := range targets {
		if c.enqueue(data) {
			eventsTotal.WithLabelValues(event.Type, "delivered").Inc()
			continue
		}
		eventsTotal.WithLabelValues(event.Type, "dropped").Inc()
		h.logger.Warn("dropped event for slow client", "type", event.Type, "user_id", c.UserID, "client_id", c.ID)
	}
}

func (h *Hub) touchPresence(userID uint, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var err error
	if online {
		err = h.presence.Connected(ctx, userID)
	} else {
		err = h.presence.Disconnected(ctx, userID)
	}
	if err != nil {
		h.logger.Warn("failed to update presence", "user_id", userID, "online", online, "error", err)
	}
}

func (h *Hub) refreshPresence(userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.Refresh(ctx, userID); err != nil {
		h.logger.Warn("failed to refresh presence", "user_id", userID, "error", err)
	}
}

func (h *Hub) connectedLocally(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}
