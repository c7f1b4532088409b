// Package domain contains the persistence model for accepted voice notes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// WorkItemStatus is the processing lifecycle state of a voice note.
type WorkItemStatus string

const (
	StatusPending WorkItemStatus = "pending"
	StatusDone    WorkItemStatus = "done"
)

// WorkItem is the durable record of one accepted voice note. It is created in
// the same transaction as the credit deduction and completed in place by the
// worker; rows are never deleted.
type WorkItem struct {
	ID               snowflake.ID   `gorm:"primaryKey"`
	Phone            string         `gorm:"not null;index"`
	MediaURL         string         `gorm:"not null"`
	MediaContentType *string        `gorm:"type:text"`
	IdempotencyKey   string         `gorm:"uniqueIndex;not null"`
	MinutesCharged   float64        `gorm:"not null;default:0"`
	DurationSeconds  *float64       `gorm:""`
	Status           WorkItemStatus `gorm:"type:text;not null;default:pending"`
	Transcript       *string        `gorm:"type:text"`
	Summary          *string        `gorm:"type:text"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WorkItem) TableName() string { return "work_items" }

// Processed reports whether the worker already produced a transcript for this
// item. Redelivered jobs use this as their idempotence guard.
func (w *WorkItem) Processed() bool {
	return w != nil && w.Transcript != nil
}
