package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	workitemdomain "github.com/smallbiznis/mina/internal/workitem/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() workitemdomain.Repository {
	return &repo{}
}

const workItemColumns = `id, phone, media_url, media_content_type, idempotency_key,
	 minutes_charged, duration_seconds, status, transcript, summary, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, item *workitemdomain.WorkItem) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO work_items (
			id, phone, media_url, media_content_type, idempotency_key,
			minutes_charged, duration_seconds, status, transcript, summary,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Phone,
		item.MediaURL,
		item.MediaContentType,
		item.IdempotencyKey,
		item.MinutesCharged,
		item.DurationSeconds,
		item.Status,
		item.Transcript,
		item.Summary,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*workitemdomain.WorkItem, error) {
	var item workitemdomain.WorkItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+workItemColumns+`
		 FROM work_items
		 WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ExistsByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM work_items WHERE idempotency_key = ?`,
		key,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) MarkDone(ctx context.Context, db *gorm.DB, id snowflake.ID, transcript, summary string, durationSeconds *float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE work_items
		 SET status = ?, transcript = ?, summary = ?,
		     duration_seconds = COALESCE(?, duration_seconds),
		     updated_at = ?
		 WHERE id = ?`,
		workitemdomain.StatusDone,
		transcript,
		summary,
		durationSeconds,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) ListStalePending(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]workitemdomain.WorkItem, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []workitemdomain.WorkItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+workItemColumns+`
		 FROM work_items
		 WHERE status = ? AND updated_at < ?
		 ORDER BY updated_at ASC
		 LIMIT ?`,
		workitemdomain.StatusPending,
		before,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Touch(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE work_items SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) ListByPhone(ctx context.Context, db *gorm.DB, phone string, limit int) ([]workitemdomain.WorkItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []workitemdomain.WorkItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+workItemColumns+`
		 FROM work_items
		 WHERE phone = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		phone,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
