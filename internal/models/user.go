package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is an account in the relationship store (PostgreSQL)
type User struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Username        string    `json:"username" gorm:"size:30;uniqueIndex"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty" gorm:"uniqueIndex"`
	Bio             string    `json:"bio" gorm:"size:150"`
	ProfileImageURL string    `json:"profile_image_url"`
	IsPrivate       bool      `json:"is_private" gorm:"default:false;index"`
	FirebaseUID     *string   `json:"-" gorm:"uniqueIndex"` // Link to Firebase User UID, nil for JWT-only accounts
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserCompact is the public card embedded in notifications, messages and story viewers
type UserCompact struct {
	ID              uint   `json:"id"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, ProfileImageURL: u.ProfileImageURL}
}

// UpdateSettingsRequest defines the request body for updating account settings.
// Nil fields are left untouched.
type UpdateSettingsRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,max=50"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=150"`
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	IsPrivate *bool   `json:"is_private,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
