package repositories

import (
	"context"

	"github.com/anonto42/nano-community/backend/internal/models"
	"gorm.io/gorm"
)

// SavedPostRepository defines the interface for bookmark operations
type SavedPostRepository interface {
	SavePost(ctx context.Context, savedPost *models.SavedPost) error
	UnsavePost(ctx context.Context, accountID uint, postID string) error
	IsPostSaved(ctx context.Context, accountID uint, postID string) (bool, error)
	GetSavedPostIDs(ctx context.Context, accountID uint, postIDs []string) (map[string]bool, error)
	DeleteByPost(ctx context.Context, postID string) error
}

// PostgresSavedPostRepository implements SavedPostRepository with gorm
type PostgresSavedPostRepository struct {
	db *gorm.DB
}

// NewPostgresSavedPostRepository creates a new PostgresSavedPostRepository
func NewPostgresSavedPostRepository(db *gorm.DB) *PostgresSavedPostRepository {
	return &PostgresSavedPostRepository{db: db}
}

func (r *PostgresSavedPostRepository) SavePost(ctx context.Context, savedPost *models.SavedPost) error {
	return duplicate(r.db.WithContext(ctx).Create(savedPost).Error)
}

func (r *PostgresSavedPostRepository) UnsavePost(ctx context.Context, accountID uint, postID string) error {
	res := r.db.WithContext(ctx).Where("account_id = ? AND post_id = ?", accountID, postID).Delete(&models.SavedPost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresSavedPostRepository) IsPostSaved(ctx context.Context, accountID uint, postID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).
		Where("account_id = ? AND post_id = ?", accountID, postID).Count(&count).Error
	return count > 0, err
}

// GetSavedPostIDs reports which of postIDs the account has saved.
func (r *PostgresSavedPostRepository) GetSavedPostIDs(ctx context.Context, accountID uint, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).
		Where("account_id = ? AND post_id IN ?", accountID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *PostgresSavedPostRepository) DeleteByPost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.SavedPost{}).Error
}
