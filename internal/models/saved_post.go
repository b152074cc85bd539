package models

import "time"

// SavedPost represents a bookmarked post
type SavedPost struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AccountID uint      `json:"account_id" gorm:"not null;uniqueIndex:idx_account_post_save,priority:1"`
	PostID    string    `json:"post_id" gorm:"size:64;not null;uniqueIndex:idx_account_post_save,priority:2;index"`
	CreatedAt time.Time `json:"created_at"`
}
