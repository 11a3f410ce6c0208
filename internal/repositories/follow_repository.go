package repositories

import (
	"context"

	"github.com/anonto42/saylink/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow graph operations.
//
// Every edge is a single row, so creating or deleting it updates both the
// follower's "following" set and the target's "followers" set at once.
type FollowRepository interface {
	// CreateFollow inserts the edge and drops any request the follower still
	// has pending with the same user. ErrDuplicate when the edge exists.
	CreateFollow(ctx context.Context, followerID, followingID uint) error
	DeleteFollow(ctx context.Context, followerID, followingID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	GetFollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	GetFollowersCount(ctx context.Context, userID uint) (int64, error)
	GetFollowingCount(ctx context.Context, userID uint) (int64, error)

	// CreateFollowRequest reports false when the request was already pending
	CreateFollowRequest(ctx context.Context, requesterID, ownerID uint) (bool, error)
	HasFollowRequest(ctx context.Context, requesterID, ownerID uint) (bool, error)
	DeleteFollowRequest(ctx context.Context, requesterID, ownerID uint) (bool, error)
	GetFollowRequesterIDs(ctx context.Context, ownerID uint) ([]uint, error)
	// AcceptFollowRequest removes the pending request and inserts the edge as one
	// operation. ErrNotFound when no request is pending.
	AcceptFollowRequest(ctx context.Context, requesterID, ownerID uint) error
}

// PostgresFollowRepository implements FollowRepository for PostgreSQL
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

func (r *PostgresFollowRepository) CreateFollow(ctx context.Context, followerID, followingID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		follow := &models.Follow{FollowerID: followerID, FollowingID: followingID}
		if err := tx.Create(follow).Error; err != nil {
			return err
		}
		return tx.Where("requester_id = ? AND owner_id = ?", followerID, followingID).Delete(&models.FollowRequest{}).Error
	})
	return translateGorm(err)
}

func (r *PostgresFollowRepository) DeleteFollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresFollowRepository) GetFollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("following_id = ?", userID).Pluck("follower_id", &ids).Error
	return ids, err
}

func (r *PostgresFollowRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Pluck("following_id", &ids).Error
	return ids, err
}

func (r *PostgresFollowRepository) GetFollowersCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("following_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PostgresFollowRepository) GetFollowingCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PostgresFollowRepository) CreateFollowRequest(ctx context.Context, requesterID, ownerID uint) (bool, error) {
	req := &models.FollowRequest{RequesterID: requesterID, OwnerID: ownerID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(req)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresFollowRepository) HasFollowRequest(ctx context.Context, requesterID, ownerID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.FollowRequest{}).
		Where("requester_id = ? AND owner_id = ?", requesterID, ownerID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresFollowRepository) DeleteFollowRequest(ctx context.Context, requesterID, ownerID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("requester_id = ? AND owner_id = ?", requesterID, ownerID).
		Delete(&models.FollowRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresFollowRepository) GetFollowRequesterIDs(ctx context.Context, ownerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.FollowRequest{}).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Pluck("requester_id", &ids).Error
	return ids, err
}

func (r *PostgresFollowRepository) AcceptFollowRequest(ctx context.Context, requesterID, ownerID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("requester_id = ? AND owner_id = ?", requesterID, ownerID).Delete(&models.FollowRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		follow := &models.Follow{FollowerID: requesterID, FollowingID: ownerID}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(follow).Error
	})
}
