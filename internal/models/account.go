package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// Plans an account can hold.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Account represents a community member (PostgreSQL)
type Account struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"size:100"`
	Email       string  `json:"email" gorm:"size:255;uniqueIndex"`
	Password    string  `json:"-"`
	FirebaseUID *string `json:"-" gorm:"size:128;uniqueIndex"`
	AvatarURL   string  `json:"avatar_url"`
	Bio         string  `json:"bio" gorm:"size:500"`

	Plan          string     `json:"plan" gorm:"size:20;not null"`
	PlanExpiresAt *time.Time `json:"plan_expires_at,omitempty"`
	KiwifyOrderID string     `json:"-" gorm:"size:64;index"`
	TokensUsed    int64      `json:"tokens_used"`

	// Notifications created after this instant are unread.
	LastNotificationsReadAt *time.Time `json:"last_notifications_read_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate defaults the plan for new accounts.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.Plan == "" {
		a.Plan = PlanFree
	}
	return nil
}

// HasActivePlan reports whether a paid plan is in effect at now.
func (a *Account) HasActivePlan(now time.Time) bool {
	if a.Plan == "" || a.Plan == PlanFree {
		return false
	}
	return a.PlanExpiresAt == nil || a.PlanExpiresAt.After(now)
}

// AccountCompact is the public projection embedded in feeds, notifications and story views.
type AccountCompact struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// ToCompact converts an account to its public projection.
func (a *Account) ToCompact() AccountCompact {
	return AccountCompact{ID: a.ID, Name: a.Name, AvatarURL: a.AvatarURL}
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type UpdateAccountRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// AccountClaims are the JWT claims issued to signed-in accounts
type AccountClaims struct {
	AccountID uint   `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}
