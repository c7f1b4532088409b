package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*Payment, error)
	FindByTransactionIDForUpdate(ctx context.Context, tx *gorm.DB, transactionID string) (*Payment, error)
	Upsert(ctx context.Context, tx *gorm.DB, payment *Payment) error
}
