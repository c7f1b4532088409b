package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, item *WorkItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*WorkItem, error)
	ExistsByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (bool, error)
	MarkDone(ctx context.Context, db *gorm.DB, id snowflake.ID, transcript, summary string, durationSeconds *float64) error
	ListByPhone(ctx context.Context, db *gorm.DB, phone string, limit int) ([]WorkItem, error)
	// ListStalePending returns pending items not touched since before,
	// oldest first. These are candidates for re-enqueueing.
	ListStalePending(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]WorkItem, error)
	// Touch bumps updated_at so a just-requeued item leaves the stale
	// window until its redelivery is consumed.
	Touch(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
