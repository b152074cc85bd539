package models

import "time"

// Notification types.
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationReply   = "reply"
)

// Notification is keyed by (recipient, actor, type, post, comment). Absent post or
// comment references are stored as empty strings so the unique index covers them.
type Notification struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	RecipientID    uint      `json:"recipient_id" gorm:"not null;uniqueIndex:ux_notification_identity,priority:1;index:idx_notification_inbox,priority:1"`
	ActorID        uint      `json:"actor_id" gorm:"not null;uniqueIndex:ux_notification_identity,priority:2"`
	Type           string    `json:"type" gorm:"size:20;not null;uniqueIndex:ux_notification_identity,priority:3;index:idx_notification_inbox,priority:2"`
	PostID         string    `json:"post_id" gorm:"size:64;not null;uniqueIndex:ux_notification_identity,priority:4"`
	CommentID      string    `json:"comment_id" gorm:"size:64;not null;uniqueIndex:ux_notification_identity,priority:5"`
	ContentPreview string    `json:"content_preview" gorm:"size:280"`
	CreatedAt      time.Time `json:"created_at" gorm:"index:idx_notification_inbox,priority:3"`
	UpdatedAt      time.Time `json:"updated_at"`
}
