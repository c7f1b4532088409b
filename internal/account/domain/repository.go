package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*User, error)
	FindByPhoneForUpdate(ctx context.Context, tx *gorm.DB, phone string) (*User, error)
	// Insert is a no-op when the phone already exists, never a constraint
	// error. Callers that need the stored row re-read under the lock.
	Insert(ctx context.Context, tx *gorm.DB, user *User) error
	UpdateBalance(ctx context.Context, tx *gorm.DB, phone string, creditsRemaining float64) error
	ActivateSubscription(ctx context.Context, tx *gorm.DB, phone string, expiry time.Time, customerRef *string) error
}
