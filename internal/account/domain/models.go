// Package domain contains the persistence model for user accounts and their
// prepaid-minutes balance.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is the durable per-identity record of remaining prepaid minutes and
// subscription state. Phone is the normalized contact identifier and the only
// lookup key.
type User struct {
	ID                  snowflake.ID `gorm:"primaryKey"`
	Phone               string       `gorm:"uniqueIndex;not null"`
	CreditsRemaining    float64      `gorm:"not null;default:30.0"`
	SubscriptionActive  bool         `gorm:"not null;default:false"`
	SubscriptionExpiry  *time.Time   `gorm:""`
	ProviderCustomerRef *string      `gorm:"type:text"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// HasActiveSubscription reports whether the user is covered by an unexpired
// subscription at the given instant. Such users are never charged against
// their prepaid balance.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u == nil || !u.SubscriptionActive {
		return false
	}
	if u.SubscriptionExpiry == nil {
		return true
	}
	return u.SubscriptionExpiry.After(now)
}
