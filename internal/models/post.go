package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	VisibilityPublic  = "public"
	VisibilityMembers = "members"
)

// Post represents a community post stored in MongoDB
type Post struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID      uint               `json:"author_id" bson:"author_id"`
	Content       string             `json:"content" bson:"content"`
	ImageURLs     []string           `json:"image_urls,omitempty" bson:"image_urls,omitempty"`
	VideoURLs     []string           `json:"video_urls,omitempty" bson:"video_urls,omitempty"`
	Category      string             `json:"category,omitempty" bson:"category,omitempty"`
	Visibility    string             `json:"visibility" bson:"visibility"`
	Pinned        bool               `json:"pinned" bson:"pinned"`
	LikesCount    int64              `json:"likes_count" bson:"likes_count"`
	CommentsCount int64              `json:"comments_count" bson:"comments_count"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content    string   `json:"content" validate:"required,min=1,max=2000"`
	ImageURLs  []string `json:"image_urls,omitempty" validate:"omitempty,max=10,dive,url"`
	VideoURLs  []string `json:"video_urls,omitempty" validate:"omitempty,max=4,dive,url"`
	Category   string   `json:"category,omitempty" validate:"omitempty,max=40"`
	Visibility string   `json:"visibility,omitempty" validate:"omitempty,oneof=public members"`
}
