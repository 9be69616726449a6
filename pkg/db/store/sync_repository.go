package store

import (
	"context"
	"fmt"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"gorm.io/gorm"
)

// SyncRunRepository keeps the history of reconcile scans
type SyncRunRepository struct {
	db *gorm.DB
}

func NewSyncRunRepository(db *gorm.DB) *SyncRunRepository {
	return &SyncRunRepository{
		db: db,
	}
}

func (r *SyncRunRepository) WithTx(tx *gorm.DB) *SyncRunRepository {
	return &SyncRunRepository{
		db: tx,
	}
}

func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return wrapError(err, "record sync run", fmt.Sprintf("started=%s", run.StartedAt))
	}
	return nil
}

// Latest returns the most recent scan
func (r *SyncRunRepository) Latest(ctx context.Context) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").First(&run).Error; err != nil {
		return nil, wrapError(err, "latest sync run", "all")
	}
	return &run, nil
}

// List returns up to limit scans, newest first
func (r *SyncRunRepository) List(ctx context.Context, limit int) ([]models.SyncRun, error) {
	query := r.db.WithContext(ctx).Order("started_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.SyncRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, wrapError(err, "list sync runs", fmt.Sprintf("limit=%d", limit))
	}
	return runs, nil
}
