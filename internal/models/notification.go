package models

import "time"

const (
	NotificationLike          = "like"
	NotificationComment       = "comment"
	NotificationFollow        = "follow"
	NotificationFollowRequest = "follow_request"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index:idx_notification_key"`
	SenderID    uint      `json:"sender_id" gorm:"index:idx_notification_key"`
	RecipientID uint      `json:"recipient_id" gorm:"index;index:idx_notification_key"`
	PostID      string    `json:"post_id,omitempty" gorm:"size:24;index:idx_notification_key"` // MongoDB ObjectID hex, empty for follow types
	CommentID   *uint     `json:"comment_id,omitempty" gorm:"index"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// NotificationKey is the dedup key of the ledger: no two live notifications share one.
type NotificationKey struct {
	Type        string
	SenderID    uint
	RecipientID uint
	PostID      string
}

func (n *Notification) Key() NotificationKey {
	return NotificationKey{Type: n.Type, SenderID: n.SenderID, RecipientID: n.RecipientID, PostID: n.PostID}
}
