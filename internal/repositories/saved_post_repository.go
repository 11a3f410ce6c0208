package repositories

import (
	"context"

	"github.com/anonto42/saylink/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedPostRepository defines the interface for saved post operations
type SavedPostRepository interface {
	SavePost(ctx context.Context, savedPost *models.SavedPost) (bool, error)
	UnsavePost(ctx context.Context, userID uint, postID string) (bool, error)
	GetSavedPostIDsByUser(ctx context.Context, userID uint) ([]string, error)
	GetSavedPostIDs(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error)
	DeleteSavesByPostID(ctx context.Context, postID string) error
}

// PostgresSavedPostRepository implements SavedPostRepository
type PostgresSavedPostRepository struct {
	db *gorm.DB
}

func NewPostgresSavedPostRepository(db *gorm.DB) *PostgresSavedPostRepository {
	return &PostgresSavedPostRepository{db: db}
}

// SavePost reports false when the post was already saved
func (r *PostgresSavedPostRepository) SavePost(ctx context.Context, savedPost *models.SavedPost) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(savedPost)
	if res.Error != nil {
		return false, translateGorm(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresSavedPostRepository) UnsavePost(ctx context.Context, userID uint, postID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.SavedPost{})
	if res.Error != nil {
		return false, translateGorm(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetSavedPostIDsByUser returns saved post ids, most recently saved first
func (r *PostgresSavedPostRepository) GetSavedPostIDsByUser(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("post_id", &ids).Error
	return ids, translateGorm(err)
}

func (r *PostgresSavedPostRepository) GetSavedPostIDs(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var saved []models.SavedPost
	err := r.db.WithContext(ctx).Where("user_id = ? AND post_id IN ?", userID, postIDs).Find(&saved).Error
	if err != nil {
		return nil, translateGorm(err)
	}
	for _, s := range saved {
		result[s.PostID] = true
	}
	return result, nil
}

func (r *PostgresSavedPostRepository) DeleteSavesByPostID(ctx context.Context, postID string) error {
	return translateGorm(r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.SavedPost{}).Error)
}
