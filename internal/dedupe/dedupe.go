// Package dedupe derives idempotency keys for inbound events and answers
// whether a key has already been accepted. The unique constraint on
// work_items.idempotency_key remains the authoritative guard; the point read
// here only lets the request path short-circuit the obvious replays.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	workitemdomain "github.com/smallbiznis/mina/internal/workitem/domain"
	"gorm.io/gorm"
)

// KeyFor returns the idempotency key for an inbound voice note: the messaging
// provider's message id when present, otherwise a deterministic hash of the
// media URL.
func KeyFor(messageSID, mediaURL string) string {
	if sid := strings.TrimSpace(messageSID); sid != "" {
		return sid
	}
	sum := sha256.Sum256([]byte(mediaURL))
	return "media:" + hex.EncodeToString(sum[:])
}

type Ledger struct {
	db   *gorm.DB
	repo workitemdomain.Repository
}

func NewLedger(db *gorm.DB, repo workitemdomain.Repository) *Ledger {
	return &Ledger{db: db, repo: repo}
}

// IsDuplicate reports whether a work item already exists for the key. A false
// answer is advisory only; two concurrent deliveries both reading false will
// still be resolved by the unique index, with exactly one insert winning.
func (l *Ledger) IsDuplicate(ctx context.Context, key string) (bool, error) {
	return l.repo.ExistsByIdempotencyKey(ctx, l.db, key)
}
