package models

import (
	"time"
)

// SyncRun records the outcome of one reconcile scan
type SyncRun struct {
	ID uint `gorm:"primaryKey"`

	StartedAt  time.Time `gorm:"not null;index"`
	FinishedAt time.Time

	// State tracking
	TotalFiles    int64  `gorm:"default:0"`
	MissingFiles  int64  `gorm:"default:0"`
	OrphanedFiles int64  `gorm:"default:0"`
	UpdatedFiles  int64  `gorm:"default:0"`
	LastError     string `gorm:"type:text"`

	CreatedAt time.Time
}
