// Package realtime delivers best-effort push events to live websocket
// connections, addressed by user id or by conversation room.
package realtime

// Server-to-client events
const (
	EventNewNotification     = "new_notification"
	EventRemoveNotification  = "remove_notification"
	EventNewMessage          = "new_message"
	EventStoryViewed         = "story_viewed"
	EventUserTyping          = "user_typing"
	EventUserStopTyping      = "user_stop_typing"
	EventMessageDeliveredAck = "message_delivered_ack"
	EventMessagesSeenAck     = "messages_seen_ack"
)

// Client-to-server events
const (
	inJoinConversations = "join_conversations"
	inTyping            = "typing"
	inStopTyping        = "stop_typing"
	inMessageDelivered  = "message_delivered"
	inMessagesSeen      = "messages_seen"
)

// Event is the envelope written to every connection
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher pushes events to whoever is connected. Calls never block on a slow
// or absent recipient; an undeliverable event is dropped.
type Publisher interface {
	PublishToUser(userID uint, event Event)
	PublishToConversation(conversationID string, event Event)
}

type inbound struct {
	Type    string `json:"type"`
	Payload struct {
		ConversationID  string   `json:"conversationId"`
		ConversationIDs []string `json:"conversationIds"`
		MessageID       string   `json:"messageId"`
	} `json:"payload"`
}

// NotificationRemoved is the payload of EventRemoveNotification
type NotificationRemoved struct {
	NotificationID uint `json:"notificationId"`
}

type typingPayload struct {
	UserID         uint   `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type deliveredPayload struct {
	MessageID string `json:"messageId"`
}

// MessagesSeen is the payload of EventMessagesSeenAck. UserID is set when
// the ack comes from a persisted mark-seen.
type MessagesSeen struct {
	ConversationID string `json:"conversationId"`
	UserID         uint   `json:"userId,omitempty"`
}
