package repository

import (
	"context"

	paymentdomain "github.com/smallbiznis/mina/internal/payment/domain"
	"github.com/smallbiznis/mina/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

const paymentColumns = `id, transaction_id, phone, amount, currency, status,
	 raw_payload, created_at, updated_at`

func (r *repo) FindByTransactionID(ctx context.Context, gdb *gorm.DB, transactionID string) (*paymentdomain.Payment, error) {
	return r.find(ctx, gdb, transactionID, "")
}

func (r *repo) FindByTransactionIDForUpdate(ctx context.Context, tx *gorm.DB, transactionID string) (*paymentdomain.Payment, error) {
	return r.find(ctx, tx, transactionID, db.RowLockSuffix(tx))
}

func (r *repo) find(ctx context.Context, gdb *gorm.DB, transactionID, lock string) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := gdb.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE transaction_id = ?`+lock,
		transactionID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) Upsert(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, transaction_id, phone, amount, currency, status, raw_payload,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO UPDATE SET
			phone = COALESCE(excluded.phone, payments.phone),
			amount = excluded.amount,
			currency = excluded.currency,
			status = excluded.status,
			raw_payload = excluded.raw_payload,
			updated_at = excluded.updated_at`,
		payment.ID,
		payment.TransactionID,
		payment.Phone,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.RawPayload,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}
