package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription statuses mirrored from the billing provider.
const (
	StatusFree     = "free"
	StatusActive   = "active"
	StatusCanceled = "canceled"
	StatusPastDue  = "past_due"
	StatusTrialing = "trialing"
)

// UserProfile holds per-user billing state. It is written by the
// webhook receiver when provider events arrive and read by the rate
// limiter to pick the quota tier.
type UserProfile struct {
	UserID             string    `gorm:"primaryKey;type:text"`
	Email              string    `gorm:"index"`
	StripeCustomerID   string    `gorm:"index"`
	SubscriptionID     string
	SubscriptionStatus string    `gorm:"not null;default:free"`
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	EnhancementCount   int64     `gorm:"not null;default:0"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// EnhancementLog records one enhancement request for usage reporting.
type EnhancementLog struct {
	ID            string    `gorm:"primaryKey;type:text"`
	UserID        string    `gorm:"index"`
	Technique     string    `gorm:"not null"`
	Format        string    `gorm:"not null"`
	Model         string
	PromptChars   int       `gorm:"not null;default:0"`
	EnhancedChars int       `gorm:"not null;default:0"`
	DurationMs    int64     `gorm:"not null;default:0"`
	CacheHit      bool      `gorm:"not null;default:false"`
	StatusCode    int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

func (l *EnhancementLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
