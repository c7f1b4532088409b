package repository

import (
	"context"
	"time"

	accountdomain "github.com/smallbiznis/mina/internal/account/domain"
	"github.com/smallbiznis/mina/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accountdomain.Repository {
	return &repo{}
}

const userColumns = `id, phone, credits_remaining, subscription_active, subscription_expiry,
	 provider_customer_ref, created_at, updated_at`

func (r *repo) FindByPhone(ctx context.Context, gdb *gorm.DB, phone string) (*accountdomain.User, error) {
	return r.findByPhone(ctx, gdb, phone, "")
}

func (r *repo) FindByPhoneForUpdate(ctx context.Context, tx *gorm.DB, phone string) (*accountdomain.User, error) {
	return r.findByPhone(ctx, tx, phone, db.RowLockSuffix(tx))
}

func (r *repo) findByPhone(ctx context.Context, gdb *gorm.DB, phone, lock string) (*accountdomain.User, error) {
	var user accountdomain.User
	err := gdb.WithContext(ctx).Raw(
		`SELECT `+userColumns+`
		 FROM users
		 WHERE phone = ?`+lock,
		phone,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

// Insert creates the user row. A concurrent first contact can race this
// insert; ON CONFLICT DO NOTHING keeps the loser's transaction usable, so
// callers re-read under the row lock instead of handling a constraint error.
func (r *repo) Insert(ctx context.Context, tx *gorm.DB, user *accountdomain.User) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO users (
			id, phone, credits_remaining, subscription_active, subscription_expiry,
			provider_customer_ref, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (phone) DO NOTHING`,
		user.ID,
		user.Phone,
		user.CreditsRemaining,
		user.SubscriptionActive,
		user.SubscriptionExpiry,
		user.ProviderCustomerRef,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) UpdateBalance(ctx context.Context, tx *gorm.DB, phone string, creditsRemaining float64) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE users
		 SET credits_remaining = ?, updated_at = ?
		 WHERE phone = ?`,
		creditsRemaining,
		time.Now().UTC(),
		phone,
	).Error
}

func (r *repo) ActivateSubscription(ctx context.Context, tx *gorm.DB, phone string, expiry time.Time, customerRef *string) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE users
		 SET subscription_active = TRUE,
		     subscription_expiry = ?,
		     provider_customer_ref = COALESCE(?, provider_customer_ref),
		     updated_at = ?
		 WHERE phone = ?`,
		expiry,
		customerRef,
		time.Now().UTC(),
		phone,
	).Error
}
