package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// drain reads every queued event without blocking
func drain(t *testing.T, c *Client) []Event {
	t.Helper()
	var events []Event
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return events
			}
			var ev Event
			require.NoError(t, json.Unmarshal(data, &ev))
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestPublishToUserReachesEveryDevice(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	phone := NewClient(hub, nil, 1, 4)
	laptop := NewClient(hub, nil, 1, 4)
	other := NewClient(hub, nil, 2, 4)
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(other)

	hub.PublishToUser(1, Event{Type: EventNewNotification, Payload: map[string]int{"id": 9}})

	for _, c := range []*Client{phone, laptop} {
		events := drain(t, c)
		require.Len(t, events, 1)
		assert.Equal(t, EventNewNotification, events[0].Type)
	}
	assert.Empty(t, drain(t, other))
}

func TestPublishToAbsentUserIsDropped(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	before := testutil.ToFloat64(eventsTotal.WithLabelValues(EventStoryViewed, "offline"))

	assert.NotPanics(t, func() {
		hub.PublishToUser(77, Event{Type: EventStoryViewed})
		hub.PublishToConversation("nobody-here", Event{Type: EventStoryViewed})
	})
	assert.Equal(t, before+2, testutil.ToFloat64(eventsTotal.WithLabelValues(EventStoryViewed, "offline")))
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	slow := NewClient(hub, nil, 1, 2)
	hub.Register(slow)
	before := testutil.ToFloat64(eventsTotal.WithLabelValues(EventNewMessage, "dropped"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			hub.PublishToUser(1, Event{Type: EventNewMessage})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}

	assert.Len(t, drain(t, slow), 2)
	assert.Equal(t, before+3, testutil.ToFloat64(eventsTotal.WithLabelValues(EventNewMessage, "dropped")))
}

func TestRoomsAndRelay(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	alice := NewClient(hub, nil, 1, 8)
	bob := NewClient(hub, nil, 2, 8)
	eve := NewClient(hub, nil, 3, 8)
	for _, c := range []*Client{alice, bob, eve} {
		hub.Register(c)
	}
	hub.Join(alice, "conv-1")
	hub.Join(bob, "conv-1")

	hub.PublishToConversation("conv-1", Event{Type: EventNewMessage})
	assert.Len(t, drain(t, alice), 1)
	assert.Len(t, drain(t, bob), 1)
	assert.Empty(t, drain(t, eve))

	alice.handle(context.Background(), nil, inboundOf(t, `{"type":"typing","payload":{"conversationId":"conv-1"}}`))
	assert.Empty(t, drain(t, alice), "the sender never gets its own relay")
	events := drain(t, bob)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserTyping, events[0].Type)
	assert.Equal(t, map[string]any{"userId": float64(1), "conversationId": "conv-1"}, events[0].Payload)

	// eve never joined, so her relays go nowhere
	eve.handle(context.Background(), nil, inboundOf(t, `{"type":"typing","payload":{"conversationId":"conv-1"}}`))
	assert.Empty(t, drain(t, alice))
	assert.Empty(t, drain(t, bob))

	bob.handle(context.Background(), nil, inboundOf(t, `{"type":"message_delivered","payload":{"conversationId":"conv-1","messageId":"m1"}}`))
	events = drain(t, alice)
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageDeliveredAck, events[0].Type)
	assert.Equal(t, map[string]any{"messageId": "m1"}, events[0].Payload)
}

type denyRooms map[string]bool

func (d denyRooms) CanJoin(_ context.Context, _ uint, conversationID string) bool {
	return !d[conversationID]
}

func TestJoinChecksAuthorizer(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	c := NewClient(hub, nil, 1, 8)
	hub.Register(c)

	c.handle(context.Background(), denyRooms{"secret": true}, inboundOf(t, `{"type":"join_conversations","payload":{"conversationIds":["open","secret"]}}`))
	assert.Len(t, hub.roomMembers("open", nil), 1)
	assert.Empty(t, hub.roomMembers("secret", nil))

	// unregistered clients cannot join
	stray := NewClient(hub, nil, 2, 8)
	hub.Join(stray, "open")
	assert.Len(t, hub.roomMembers("open", nil), 1)
}

func TestUnregisterCleansUp(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	phone := NewClient(hub, nil, 1, 8)
	laptop := NewClient(hub, nil, 1, 8)
	hub.Register(phone)
	hub.Register(laptop)
	hub.Join(phone, "conv-1")

	online, err := hub.Presence().IsOnline(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, online)

	hub.Unregister(phone)
	assert.Empty(t, hub.roomMembers("conv-1", nil))
	assert.False(t, phone.enqueue([]byte("{}")), "a closed client takes nothing")
	online, _ = hub.Presence().IsOnline(context.Background(), 1)
	assert.True(t, online, "the laptop is still connected")

	hub.Unregister(laptop)
	hub.Unregister(laptop)
	online, _ = hub.Presence().IsOnline(context.Background(), 1)
	assert.False(t, online)
}

type countingPresence struct {
	connected, disconnected, refreshed int
}

func (p *countingPresence) Refresh(context.Context, uint) error {
	p.refreshed++
	return nil
}

func (p *countingPresence) Connected(context.Context, uint) error {
	p.connected++
	return nil
}

func (p *countingPresence) Disconnected(context.Context, uint) error {
	p.disconnected++
	return nil
}

func (p *countingPresence) IsOnline(context.Context, uint) (bool, error) {
	return p.connected > p.disconnected, nil
}

func TestPresenceTracksFirstAndLastConnection(t *testing.T) {
	presence := &countingPresence{}
	hub := NewHub(presence, quietLogger())
	a := NewClient(hub, nil, 1, 1)
	b := NewClient(hub, nil, 1, 1)

	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 1, presence.connected)
	hub.Unregister(a)
	assert.Equal(t, 0, presence.disconnected)
	hub.Unregister(b)
	assert.Equal(t, 1, presence.disconnected)
}

func TestRefreshPresenceReachesTracker(t *testing.T) {
	presence := &countingPresence{}
	hub := NewHub(presence, quietLogger())
	hub.Register(NewClient(hub, nil, 1, 1))

	hub.refreshPresence(1)
	hub.refreshPresence(1)
	assert.Equal(t, 2, presence.refreshed)
	assert.Equal(t, 1, presence.connected)
}

func inboundOf(t *testing.T, raw string) inbound {
	t.Helper()
	var msg inbound
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return msg
}

type allowRooms struct{}

func (allowRooms) CanJoin(context.Context, uint, string) bool { return true }

func TestWebsocketRoundTrip(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		uid := uint(1)
		if r.URL.Query().Get("user") == "2" {
			uid = 2
		}
		NewClient(hub, conn, uid, 16).Run(context.Background(), allowRooms{})
	}))
	defer srv.Close()

	dial := func(user string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + user
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}
	alice := dial("1")
	defer alice.Close()
	bob := dial("2")
	defer bob.Close()

	join := []byte(`{"type":"join_conversations","payload":{"conversationIds":["conv-9"]}}`)
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, join))
	require.NoError(t, bob.WriteMessage(websocket.TextMessage, join))
	require.Eventually(t, func() bool {
		return len(hub.roomMembers("conv-9", nil)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"stop_typing","payload":{"conversationId":"conv-9"}}`)))

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, bob.ReadJSON(&ev))
	assert.Equal(t, EventUserStopTyping, ev.Type)

	hub.PublishToUser(1, Event{Type: EventNewNotification, Payload: "hello"})
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	var note Event
	require.NoError(t, alice.ReadJSON(&note))
	assert.Equal(t, EventNewNotification, note.Type)
	assert.Equal(t, "hello", note.Payload)

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool {
		online, _ := hub.Presence().IsOnline(context.Background(), 1)
		return !online
	}, 2*time.Second, 10*time.Millisecond)
}
