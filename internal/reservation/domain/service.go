// Package domain defines the contract of the reservation engine: the atomic
// check-and-deduct of prepaid minutes together with the creation of the
// corresponding work item.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	// ErrInsufficientCredits is a normal business outcome, not a failure: the
	// user has fewer prepaid minutes than the voice note requires.
	ErrInsufficientCredits = errors.New("insufficient_credits")
	// ErrDuplicateDelivery marks a redelivery of an already-accepted event.
	ErrDuplicateDelivery = errors.New("duplicate_delivery")
	ErrInvalidRequest    = errors.New("invalid_reservation_request")
)

type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDuplicate Outcome = "duplicate"
)

// ReserveRequest describes one inbound voice note. Phone must already be in
// canonical form.
type ReserveRequest struct {
	Phone            string
	MediaURL         string
	MediaContentType *string
	MinutesNeeded    float64
	IdempotencyKey   string
}

// Result reports the reservation decision. RemainingMinutes reflects the
// balance after deduction for accepted requests and the untouched balance for
// rejected ones.
type Result struct {
	Outcome          Outcome
	WorkItemID       snowflake.ID
	MinutesCharged   float64
	RemainingMinutes float64
	Reason           string
}

type Service interface {
	Reserve(ctx context.Context, req ReserveRequest) (Result, error)
}
