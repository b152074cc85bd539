package repositories

import (
	"context"

	"github.com/anonto42/nano-community/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, userID uint, targetType, targetID string) error
	HasLiked(ctx context.Context, userID uint, targetType, targetID string) (bool, error)
	LikedTargetIDs(ctx context.Context, userID uint, targetType string, targetIDs []string) (map[string]bool, error)
	DeleteByTarget(ctx context.Context, targetType, targetID string) error
	DeleteByTargets(ctx context.Context, targetType string, targetIDs []string) error
}

// PostgresLikeRepository implements LikeRepository with gorm
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike inserts a like. A second like on the same target yields ErrDuplicate.
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	return duplicate(r.db.WithContext(ctx).Create(like).Error)
}

func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, userID uint, targetType, targetID string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Delete(&models.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresLikeRepository) HasLiked(ctx context.Context, userID uint, targetType, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Count(&count).Error
	return count > 0, err
}

// LikedTargetIDs reports which of targetIDs the user has liked.
func (r *PostgresLikeRepository) LikedTargetIDs(ctx context.Context, userID uint, targetType string, targetIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(targetIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, targetType, targetIDs).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// DeleteByTarget drops every like on a target, used when the target is removed.
func (r *PostgresLikeRepository) DeleteByTarget(ctx context.Context, targetType, targetID string) error {
	return r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Delete(&models.Like{}).Error
}

func (r *PostgresLikeRepository) DeleteByTargets(ctx context.Context, targetType string, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Delete(&models.Like{}).Error
}
