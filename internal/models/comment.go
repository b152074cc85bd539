package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post. Replies point at a top-level parent.
type Comment struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	PostID       string         `json:"post_id" gorm:"size:64;not null;index"`
	AuthorID     uint           `json:"author_id" gorm:"not null;index"`
	ParentID     *uint          `json:"parent_id,omitempty" gorm:"index"`
	Content      string         `json:"content" gorm:"size:1000;not null"`
	LikesCount   int64          `json:"likes_count" gorm:"not null;default:0"`
	RepliesCount int64          `json:"replies_count" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsReply reports whether the comment is nested under another comment.
func (c *Comment) IsReply() bool { return c.ParentID != nil }

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=1000"`
	ParentID *uint  `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
}
