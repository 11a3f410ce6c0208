package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/repositories"
)

// FollowResult reports the relationship after a toggle
type FollowResult struct {
	Following bool `json:"following"`
	Requested bool `json:"requested"`
}

// GraphService owns the follow graph and follow requests
type GraphService struct {
	users   repositories.UserRepository
	follows repositories.FollowRepository
	ledger  *Ledger
	logger  *slog.Logger
}

func NewGraphService(users repositories.UserRepository, follows repositories.FollowRepository, ledger *Ledger, logger *slog.Logger) *GraphService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphService{users: users, follows: follows, ledger: ledger, logger: logger}
}

// IsFriend reports whether a and b follow each other. Every friendship check
// in the engine goes through here.
func (s *GraphService) IsFriend(ctx context.Context, a, b uint) (bool, error) {
	if a == b {
		return false, nil
	}
	ab, err := s.follows.IsFollowing(ctx, a, b)
	if err != nil || !ab {
		return false, storeError(err, "user not found")
	}
	ba, err := s.follows.IsFollowing(ctx, b, a)
	return ba, storeError(err, "user not found")
}

// IsFollower reports whether follower is an approved follower of userID
func (s *GraphService) IsFollower(ctx context.Context, follower, userID uint) (bool, error) {
	ok, err := s.follows.IsFollowing(ctx, follower, userID)
	return ok, storeError(err, "user not found")
}

// Friends returns the ids userID both follows and is followed by
func (s *GraphService) Friends(ctx context.Context, userID uint) ([]uint, error) {
	following, err := s.follows.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	followers, err := s.follows.GetFollowerIDs(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	back := make(map[uint]struct{}, len(followers))
	for _, id := range followers {
		back[id] = struct{}{}
	}
	friends := make([]uint, 0)
	for _, id := range following {
		if _, ok := back[id]; ok {
			friends = append(friends, id)
		}
	}
	return friends, nil
}

// ToggleFollow unfollows when actor already follows target. Otherwise it
// follows a public target directly or files a request with a private one.
// A pending request is left in place by repeated toggles.
func (s *GraphService) ToggleFollow(ctx context.Context, actorID, targetID uint) (*FollowResult, error) {
	if actorID == targetID {
		return nil, newError(ErrSelfReference, "you cannot follow yourself")
	}
	if _, err := s.users.GetUserByID(ctx, actorID); err != nil {
		return nil, storeError(err, "user not found")
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}

	following, err := s.follows.IsFollowing(ctx, actorID, targetID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}

	if following {
		if _, err := s.follows.DeleteFollow(ctx, actorID, targetID); err != nil {
			return nil, storeError(err, "user not found")
		}
		key := models.NotificationKey{Type: models.NotificationFollow, SenderID: actorID, RecipientID: targetID}
		if _, err := s.ledger.Retract(ctx, key); err != nil {
			s.logger.Warn("failed to retract follow notification", "sender_id", actorID, "recipient_id", targetID, "error", err)
		}
		return &FollowResult{Following: false}, nil
	}

	if target.IsPrivate {
		created, err := s.follows.CreateFollowRequest(ctx, actorID, targetID)
		if err != nil {
			return nil, storeError(err, "user not found")
		}
		if created {
			key := models.NotificationKey{Type: models.NotificationFollowRequest, SenderID: actorID, RecipientID: targetID}
			if _, err := s.ledger.Notify(ctx, key, nil); err != nil {
				s.logger.Warn("failed to notify follow request", "sender_id", actorID, "recipient_id", targetID, "error", err)
			}
		}
		return &FollowResult{Requested: true}, nil
	}

	if err := s.follows.CreateFollow(ctx, actorID, targetID); err != nil {
		// a concurrent toggle already created the edge
		if errors.Is(err, repositories.ErrDuplicate) {
			return &FollowResult{Following: true}, nil
		}
		return nil, storeError(err, "user not found")
	}
	key := models.NotificationKey{Type: models.NotificationFollow, SenderID: actorID, RecipientID: targetID}
	if _, err := s.ledger.Notify(ctx, key, nil); err != nil {
		s.logger.Warn("failed to notify follow", "sender_id", actorID, "recipient_id", targetID, "error", err)
	}
	return &FollowResult{Following: true}, nil
}

// AcceptFollowRequest turns requester's pending request into a follow edge.
// Neither side is notified, and the owner's follow_request entry stays in
// the ledger until read or cleared.
func (s *GraphService) AcceptFollowRequest(ctx context.Context, ownerID, requesterID uint) error {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return storeError(err, "user not found")
	}
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return storeError(err, "user not found")
	}
	if err := s.follows.AcceptFollowRequest(ctx, requesterID, ownerID); err != nil {
		return storeError(err, "follow request not found")
	}
	return nil
}

// RejectFollowRequest drops a pending request. Rejecting a request that does
// not exist succeeds.
func (s *GraphService) RejectFollowRequest(ctx context.Context, ownerID, requesterID uint) error {
	if _, err := s.follows.DeleteFollowRequest(ctx, requesterID, ownerID); err != nil {
		return storeError(err, "follow request not found")
	}
	return nil
}

// ListFollowRequests returns the cards of users waiting on ownerID, newest first
func (s *GraphService) ListFollowRequests(ctx context.Context, ownerID uint) ([]models.UserCompact, error) {
	ids, err := s.follows.GetFollowRequesterIDs(ctx, ownerID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return s.cardsInOrder(ctx, ids)
}

func (s *GraphService) Followers(ctx context.Context, userID uint) ([]models.UserCompact, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, storeError(err, "user not found")
	}
	ids, err := s.follows.GetFollowerIDs(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return s.cardsInOrder(ctx, ids)
}

func (s *GraphService) Following(ctx context.Context, userID uint) ([]models.UserCompact, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, storeError(err, "user not found")
	}
	ids, err := s.follows.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return s.cardsInOrder(ctx, ids)
}

func (s *GraphService) cardsInOrder(ctx context.Context, ids []uint) ([]models.UserCompact, error) {
	cards, err := userCards(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserCompact, 0, len(ids))
	for _, id := range ids {
		if card, ok := cards[id]; ok {
			out = append(out, card)
		}
	}
	return out, nil
}
