package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoryTTL is how long a story stays visible after creation.
const StoryTTL = 24 * time.Hour

const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Story represents an ephemeral story stored in MongoDB
type Story struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID   uint               `json:"owner_id" bson:"owner_id"`
	MediaURL  string             `json:"media_url" bson:"media_url"`
	MediaType string             `json:"media_type" bson:"media_type"`
	Overlay   *StoryOverlay      `json:"overlay,omitempty" bson:"overlay,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"`
}

// StoryOverlay is text drawn over the media. X and Y are percentages of the frame.
type StoryOverlay struct {
	Text string  `json:"text" bson:"text" validate:"required,max=200"`
	X    float64 `json:"x" bson:"x" validate:"gte=0,lte=100"`
	Y    float64 `json:"y" bson:"y" validate:"gte=0,lte=100"`
}

// ActiveAt reports whether the story is visible at now.
func (s *Story) ActiveAt(now time.Time) bool {
	return !now.After(s.ExpiresAt)
}

// StoryView records that a viewer opened a story (PostgreSQL)
type StoryView struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	StoryID  string    `json:"story_id" gorm:"size:64;not null;uniqueIndex:idx_story_viewer,priority:1"`
	ViewerID uint      `json:"viewer_id" gorm:"not null;uniqueIndex:idx_story_viewer,priority:2;index"`
	ViewedAt time.Time `json:"viewed_at"`
}

// CreateStoryRequest defines the JSON body for registering a pre-uploaded story
type CreateStoryRequest struct {
	MediaURL  string        `json:"media_url" validate:"required,url"`
	MediaType string        `json:"media_type" validate:"required,oneof=image video"`
	Overlay   *StoryOverlay `json:"overlay,omitempty" validate:"omitempty"`
}
