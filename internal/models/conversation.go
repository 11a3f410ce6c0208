package models

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageText       = "text"
	MessagePost       = "post"
	MessageStoryReply = "story_reply"
)

// Conversation is a two-party message thread stored in MongoDB. PairKey carries a
// unique index so at most one conversation exists per unordered pair.
type Conversation struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Participants []uint             `json:"participants" bson:"participants"`
	PairKey      string             `json:"pair_key" bson:"pair_key"`
	IsAccepted   bool               `json:"is_accepted" bson:"is_accepted"`
	RequestedBy  *uint              `json:"requested_by" bson:"requested_by"`
	LastMessage  string             `json:"last_message" bson:"last_message"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID uint) uint {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return 0
}

// PairKey sorts the decimal ids lexicographically and joins them with "_".
func PairKey(a, b uint) string {
	ids := []string{strconv.FormatUint(uint64(a), 10), strconv.FormatUint(uint64(b), 10)}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// Message belongs to exactly one conversation and is immutable apart from SeenBy
type Message struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversation_id" bson:"conversation_id"`
	SenderID       uint               `json:"sender_id" bson:"sender_id"`
	Type           string             `json:"type" bson:"type"`
	Text           string             `json:"text,omitempty" bson:"text,omitempty"`
	PostID         string             `json:"post_id,omitempty" bson:"post_id,omitempty"`
	StoryID        string             `json:"story_id,omitempty" bson:"story_id,omitempty"`
	SeenBy         []uint             `json:"seen_by" bson:"seen_by"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// SendMessageRequest defines the request body for sending a text message
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// SharePostRequest defines the request body for sharing a post into a conversation
type SharePostRequest struct {
	ReceiverID uint   `json:"receiver_id" validate:"required"`
	PostID     string `json:"post_id" validate:"required,len=24,hexadecimal"`
}
