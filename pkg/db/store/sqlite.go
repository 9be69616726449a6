package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	config "github.com/mwantia/gocatalog/internal/config/server"
	"github.com/mwantia/gocatalog/pkg/db/migrations"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements CatalogStore using SQLite
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

var _ CatalogStore = (*SQLiteStore)(nil)

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path        string
	BusyTimeout int
	LogLevel    logger.LogLevel
}

// NewSQLiteStore creates a new SQLite-backed catalog store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5000
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(cfg.LogLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: cfg.Path,
	}, nil
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// Path returns the database file location
func (s *SQLiteStore) Path() string {
	return s.path
}

// Connect initializes the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := s.db.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate applies all pending schema migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return s.Migrator().Migrate(ctx)
}

func (s *SQLiteStore) Migrator() *migrations.Migrator {
	return migrations.NewMigrator(s.db)
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// Open creates, connects and migrates a store in one step
func Open(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := s.Connect(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return s, nil
}

// ConfigFromMetadata translates the metadata configuration section
func ConfigFromMetadata(cfg config.MetadataServerConfig) (SQLiteConfig, error) {
	if cfg.Type != "" && cfg.Type != "sqlite" {
		return SQLiteConfig{}, fmt.Errorf("unsupported metadata store type '%s'", cfg.Type)
	}

	level := logger.Silent
	if cfg.SQLite.Debug {
		level = logger.Info
	}

	return SQLiteConfig{
		Path:        cfg.SQLite.Path,
		BusyTimeout: cfg.SQLite.BusyTimeout,
		LogLevel:    level,
	}, nil
}

// OpenFromConfig opens the store described by the metadata configuration
func OpenFromConfig(ctx context.Context, cfg config.MetadataServerConfig) (*SQLiteStore, error) {
	sc, err := ConfigFromMetadata(cfg)
	if err != nil {
		return nil, err
	}
	return Open(ctx, sc)
}
