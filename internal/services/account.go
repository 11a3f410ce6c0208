package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/anonto42/saylink/backend/internal/repositories"
)

const (
	searchMinLength = 2
	searchLimit     = 20
)

// AccountService manages an account's own settings and lookups of others
type AccountService struct {
	users    repositories.UserRepository
	presence realtime.Presence
	logger   *slog.Logger
}

func NewAccountService(users repositories.UserRepository, presence realtime.Presence, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{users: users, presence: presence, logger: logger}
}

func (s *AccountService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	return user, storeError(err, "user not found")
}

// UpdateSettings applies the non-nil fields of req. Switching to public does
// not approve pending follow requests.
func (s *AccountService) UpdateSettings(ctx context.Context, userID uint, req models.UpdateSettingsRequest) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, newError(ErrValidation, "username cannot be empty")
		}
		user.Username = username
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.IsPrivate != nil {
		user.IsPrivate = *req.IsPrivate
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(ErrConflict, "username already taken")
		}
		return nil, storeError(err, "user not found")
	}
	s.logger.Info("account settings updated", "user_id", userID, "is_private", user.IsPrivate)
	return user, nil
}

// Search matches usernames containing query, case-insensitively
func (s *AccountService) Search(ctx context.Context, query string) ([]models.UserCompact, error) {
	query = strings.TrimSpace(query)
	if len(query) < searchMinLength {
		return nil, newError(ErrValidation, "search query is too short")
	}
	users, err := s.users.SearchUsers(ctx, query, searchLimit)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	cards := make([]models.UserCompact, 0, len(users))
	for i := range users {
		cards = append(cards, users[i].ToCompact())
	}
	return cards, nil
}

// IsOnline reports whether userID has a live connection
func (s *AccountService) IsOnline(ctx context.Context, userID uint) (bool, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return false, storeError(err, "user not found")
	}
	online, err := s.presence.IsOnline(ctx, userID)
	if err != nil {
		return false, &Error{Kind: ErrOperational, Reason: "presence unavailable", cause: err}
	}
	return online, nil
}

// ResolveFirebaseUID maps a verified Firebase identity to its account
func (s *AccountService) ResolveFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.users.GetUserByFirebaseUID(ctx, uid)
	return user, storeError(err, "user not found")
}
