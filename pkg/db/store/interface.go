package store

import (
	"context"

	"github.com/mwantia/gocatalog/pkg/db/migrations"
	"gorm.io/gorm"
)

// CatalogStore is the process-wide handle on the catalog database. It is
// opened once on start, injected into every repository and closed on shutdown.
type CatalogStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// DB returns the underlying GORM database instance
	DB() *gorm.DB
	// Migrator exposes schema status and rollback
	Migrator() *migrations.Migrator
	// Transaction runs fn atomically; any error rolls back everything fn did
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
