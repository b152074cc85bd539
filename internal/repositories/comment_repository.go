package repositories

import (
	"context"

	"github.com/anonto42/nano-community/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	SoftDeleteComment(ctx context.Context, id uint) error
	SoftDeleteByPost(ctx context.Context, postID string) ([]uint, error)
	AddLikes(ctx context.Context, id uint, delta int64) (int64, error)
	AddReplies(ctx context.Context, id uint, delta int64) (int64, error)
}

// PostgresCommentRepository implements CommentRepository with gorm
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetCommentByID returns a live comment. Soft-deleted comments are reported as not found.
func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

// GetCommentsByPostID lists live comments of a post, oldest first.
func (r *PostgresCommentRepository) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *PostgresCommentRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

func (r *PostgresCommentRepository) SoftDeleteComment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteByPost soft-deletes every live comment of a post and returns their ids.
func (r *PostgresCommentRepository) SoftDeleteByPost(ctx context.Context, postID string) ([]uint, error) {
	db := r.db.WithContext(ctx)
	var ids []uint
	if err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := db.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// AddLikes adds delta to likes_count, floored at zero, and returns the new value.
func (r *PostgresCommentRepository) AddLikes(ctx context.Context, id uint, delta int64) (int64, error) {
	return r.addCounter(ctx, id, "likes_count", delta)
}

// AddReplies adds delta to replies_count, floored at zero, and returns the new value.
func (r *PostgresCommentRepository) AddReplies(ctx context.Context, id uint, delta int64) (int64, error) {
	return r.addCounter(ctx, id, "replies_count", delta)
}

func (r *PostgresCommentRepository) addCounter(ctx context.Context, id uint, column string, delta int64) (int64, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Comment{}).Where("id = ?", id).Update(column, flooredAdd(column, delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	var count int64
	if err := db.Model(&models.Comment{}).Where("id = ?", id).Select(column).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
