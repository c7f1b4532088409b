// Package domain contains the payment record model and the reconciliation
// contract that maps provider webhook events onto subscription state.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
	ErrInvalidEvent     = errors.New("invalid_payment_event")
	ErrLinkUnavailable  = errors.New("payment_link_unavailable")
)

// Payment is the durable record of one provider transaction. TransactionID is
// the provider's id and the unique key; repeated webhook delivery upserts the
// same row.
type Payment struct {
	ID            snowflake.ID   `gorm:"primaryKey"`
	TransactionID string         `gorm:"uniqueIndex;not null"`
	Phone         *string        `gorm:"index"`
	Amount        int64          `gorm:"not null;default:0"`
	Currency      string         `gorm:"type:text;not null;default:INR"`
	Status        string         `gorm:"type:text;not null;default:created"`
	RawPayload    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// IsPaidStatus reports membership in the paid-state set: the provider
// statuses treated as "money received" for activation purposes.
func IsPaidStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "captured", "paid", "authorized":
		return true
	default:
		return false
	}
}

// Event is one normalized payment webhook event.
type Event struct {
	TransactionID string
	Contact       string
	Amount        int64
	Currency      string
	RawStatus     string
	CustomerRef   *string
	RawPayload    []byte
}

// ReconcileResult describes the state transition one event produced.
// Activated fires exactly on the transition into the paid set.
type ReconcileResult struct {
	Phone      *string
	PrevStatus string
	NewStatus  string
	Activated  bool
}

// Link is an issued payment link.
type Link struct {
	TransactionID string
	ShortURL      string
	Amount        int64
	Status        string
}

// Provider is the payment-provider collaborator: signature verification,
// event decoding and link issuance.
type Provider interface {
	VerifySignature(payload []byte, headerSignature string) bool
	ParseEvent(payload []byte) (*Event, error)
	CreatePaymentLink(ctx context.Context, contact string, amount int64, currency, description string) (*Link, error)
}

type Service interface {
	IngestWebhook(ctx context.Context, payload []byte, headerSignature string) (ReconcileResult, error)
	Reconcile(ctx context.Context, event Event) (ReconcileResult, error)
	CreateLink(ctx context.Context, phone string) (*Link, error)
}
