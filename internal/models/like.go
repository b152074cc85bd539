package models

import "time"

// Like targets.
const (
	TargetPost    = "post"
	TargetComment = "comment"
)

// Like records one account liking one post or comment.
type Like struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_like_user_target,priority:1"`
	TargetType string    `json:"target_type" gorm:"size:16;not null;uniqueIndex:idx_like_user_target,priority:2"`
	TargetID   string    `json:"target_id" gorm:"size:64;not null;uniqueIndex:idx_like_user_target,priority:3;index"`
	CreatedAt  time.Time `json:"created_at"`
}
