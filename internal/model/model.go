package model

import (
	"time"

	"github.com/google/uuid"
)

// URL is a single short-code mapping. Aside from the claim transfer
// (user_id set, claim_token cleared) and hard deletion, rows are
// immutable after creation.
type URL struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ShortCode   string     `gorm:"type:varchar(10);uniqueIndex;not null"`
	OriginalURL string     `gorm:"type:text;not null"`
	UserID      *uuid.UUID `gorm:"type:uuid;index"`
	ClaimToken  *string    `gorm:"type:varchar(64);index"`
	CreatedAt   time.Time  `gorm:"not null"`
	ExpiresAt   *time.Time `gorm:"index"`
}

func (URL) TableName() string {
	return "urls"
}

// IsExpired reports whether the entry is logically gone at the given
// instant. Expiry is evaluated at read time; rows are never purged.
func (u *URL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}

// OwnedBy reports whether the entry belongs to the given user.
func (u *URL) OwnedBy(userID uuid.UUID) bool {
	return u.UserID != nil && *u.UserID == userID
}

// URLAnalytics holds the per-code click counter maintained by the
// analytics worker.
type URLAnalytics struct {
	ShortCode  string `gorm:"type:varchar(10);uniqueIndex;not null"`
	ClickCount int64  `gorm:"not null;default:0"`
}

func (URLAnalytics) TableName() string {
	return "url_analytics"
}
