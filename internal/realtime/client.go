package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// RoomAuthorizer decides whether a user may join a conversation room
type RoomAuthorizer interface {
	CanJoin(ctx context.Context, userID uint, conversationID string) bool
}

// Client is one live connection of a user
type Client struct {
	ID     string
	UserID uint

	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
	rooms  map[string]struct{}
}

// NewClient wraps conn; bufferSize bounds the events queued for a slow reader.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		rooms:  make(map[string]struct{}),
	}
}

// enqueue never blocks: it reports false when the client is gone or its buffer is full
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Run registers the client and pumps until the connection drops
func (c *Client) Run(ctx context.Context, auth RoomAuthorizer) {
	c.hub.Register(c)
	go c.writePump()
	c.readPump(ctx, auth)
}

func (c *Client) readPump(ctx context.Context, auth RoomAuthorizer) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "user_id", c.UserID, "client_id", c.ID, "error", err)
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Debug("ignoring malformed client event", "user_id", c.UserID, "error", err)
			continue
		}
		c.handle(ctx, auth, msg)
	}
}

func (c *Client) handle(ctx context.Context, auth RoomAuthorizer, msg inbound) {
	p := msg.Payload
	switch msg.Type {
	case inJoinConversations:
		for _, id := range p.ConversationIDs {
			if auth == nil || auth.CanJoin(ctx, c.UserID, id) {
				c.hub.Join(c, id)
			}
		}
	case inTyping:
		c.hub.relay(c, p.ConversationID, Event{Type: EventUserTyping, Payload: typingPayload{c.UserID, p.ConversationID}})
	case inStopTyping:
		c.hub.relay(c, p.ConversationID, Event{Type: EventUserStopTyping, Payload: typingPayload{c.UserID, p.ConversationID}})
	case inMessageDelivered:
		c.hub.relay(c, p.ConversationID, Event{Type: EventMessageDeliveredAck, Payload: deliveredPayload{p.MessageID}})
	case inMessagesSeen:
		c.hub.relay(c, p.ConversationID, Event{Type: EventMessagesSeenAck, Payload: MessagesSeen{ConversationID: p.ConversationID}})
	default:
		c.hub.logger.Debug("ignoring unknown client event", "type", msg.Type, "user_id", c.UserID)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			go c.hub.refreshPresence(c.UserID)
		}
	}
}
