package repositories

import (
	"context"

	"github.com/anonto42/nano-community/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationKey is the compound identity of a notification.
type NotificationKey struct {
	RecipientID uint
	ActorID     uint
	Type        string
	PostID      string
	CommentID   string
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	Upsert(ctx context.Context, notification *models.Notification) error
	Delete(ctx context.Context, key NotificationKey) (int64, error)
	ListByType(ctx context.Context, recipientID uint, notificationType string, limit int) ([]models.Notification, error)
	DeleteByPost(ctx context.Context, postID string) error
	DeleteByComment(ctx context.Context, commentID string) error
}

// PostgresNotificationRepository implements NotificationRepository with gorm
type PostgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// Upsert inserts the notification, or refreshes timestamp and preview of the row
// that already carries the same identity.
func (r *PostgresNotificationRepository) Upsert(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "recipient_id"}, {Name: "actor_id"}, {Name: "type"}, {Name: "post_id"}, {Name: "comment_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"created_at":      n.CreatedAt,
			"updated_at":      n.UpdatedAt,
			"content_preview": n.ContentPreview,
		}),
	}).Create(n).Error
}

// Delete removes the notification with the given identity and returns the number of rows removed.
func (r *PostgresNotificationRepository) Delete(ctx context.Context, key NotificationKey) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("recipient_id = ? AND actor_id = ? AND type = ? AND post_id = ? AND comment_id = ?",
			key.RecipientID, key.ActorID, key.Type, key.PostID, key.CommentID).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

// ListByType returns the newest notifications of one type for a recipient.
func (r *PostgresNotificationRepository) ListByType(ctx context.Context, recipientID uint, notificationType string, limit int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND type = ?", recipientID, notificationType).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// DeleteByPost drops notifications that reference a removed post.
func (r *PostgresNotificationRepository) DeleteByPost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Notification{}).Error
}

// DeleteByComment drops notifications that reference a removed comment.
func (r *PostgresNotificationRepository) DeleteByComment(ctx context.Context, commentID string) error {
	return r.db.WithContext(ctx).Where("comment_id = ?", commentID).Delete(&models.Notification{}).Error
}
