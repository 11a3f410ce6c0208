package models

import "time"

// Follow is one directed edge of the follow graph. A single row backs both
// follower.following and following.followers, so the two sides never diverge.
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"index;uniqueIndex:idx_follower_following"`
	FollowingID uint      `json:"following_id" gorm:"index;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"created_at"`
}

// FollowRequest is a pending request from RequesterID to follow the private account OwnerID
type FollowRequest struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RequesterID uint      `json:"requester_id" gorm:"index;uniqueIndex:idx_requester_owner"`
	OwnerID     uint      `json:"owner_id" gorm:"index;uniqueIndex:idx_requester_owner"`
	CreatedAt   time.Time `json:"created_at"`
}
