package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoryLifetime is how long a story stays visible after creation
const StoryLifetime = 24 * time.Hour

// Story represents a user's story stored in MongoDB
type Story struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	Media     StoryMedia         `json:"media" bson:"media"`
	Viewers   []uint             `json:"viewers" bson:"viewers"`
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// StoryMedia references the uploaded media of a story
type StoryMedia struct {
	URL  string `json:"url" bson:"url"`
	Type string `json:"type" bson:"type"` // "image" or "video"
}

func (s *Story) ViewedBy(userID uint) bool {
	for _, v := range s.Viewers {
		if v == userID {
			return true
		}
	}
	return false
}

// CreateStoryRequest defines the request body for creating a story
type CreateStoryRequest struct {
	MediaURL string `json:"media_url" validate:"required,url"`
	Type     string `json:"type" validate:"required,oneof=image video"`
}

// StoryReplyRequest defines the request body for replying to a story
type StoryReplyRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}
