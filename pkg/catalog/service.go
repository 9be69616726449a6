package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mwantia/gocatalog/internal/config/server"
	"github.com/mwantia/gocatalog/pkg/archive"
	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/mwantia/gocatalog/pkg/dedup"
	"github.com/mwantia/gocatalog/pkg/ingest"
	"github.com/mwantia/gocatalog/pkg/log"
	"github.com/mwantia/gocatalog/pkg/marketplace"
	"github.com/mwantia/gocatalog/pkg/reconcile"
	"github.com/mwantia/gocatalog/pkg/validation"
)

// Options wires the collaborators of a Service
type Options struct {
	Root            string
	UnsortedBucket  string
	DefaultTagColor string
	MaxTagLength    int
	Workers         int

	Decoder archive.Decoder
	Fetcher marketplace.Fetcher
}

// Service is the operation surface of the catalog. It composes the
// repositories, the ingestion pipeline, the duplicate detector and the
// reconciler over a single store.
type Service struct {
	store      store.CatalogStore
	repos      *store.Repositories
	pipeline   *ingest.Pipeline
	reconciler *reconcile.Reconciler
	detector   *dedup.Detector
	logger     log.LoggerService
	tagColor   string
}

func New(catalog store.CatalogStore, logger log.LoggerService, opts Options) (*Service, error) {
	if opts.Root == "" {
		return nil, errors.New("catalog root is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog root: %w", err)
	}
	if opts.MaxTagLength <= 0 {
		opts.MaxTagLength = validation.DefaultMaxTagLength
	}
	if opts.DefaultTagColor == "" {
		opts.DefaultTagColor = store.DefaultTagColor
	}
	if opts.Decoder == nil {
		opts.Decoder = archive.NewZipDecoder()
	}

	repos := store.NewRepositories(catalog.DB(), validation.NewTagNameValidator(opts.MaxTagLength))
	return &Service{
		store: catalog,
		repos: repos,
		pipeline: ingest.NewPipeline(catalog, repos, opts.Decoder, opts.Fetcher, logger, ingest.Options{
			Root:           root,
			UnsortedBucket: opts.UnsortedBucket,
			TagColor:       opts.DefaultTagColor,
			Workers:        opts.Workers,
		}),
		reconciler: reconcile.NewReconciler(catalog, repos, root, opts.Workers, logger),
		detector:   dedup.NewDetector(repos.Files),
		logger:     logger.Named("catalog"),
		tagColor:   opts.DefaultTagColor,
	}, nil
}

// NewFromConfig builds a Service from the catalog configuration section
func NewFromConfig(catalog store.CatalogStore, logger log.LoggerService, cfg server.CatalogServerConfig) (*Service, error) {
	return New(catalog, logger, Options{
		Root:            cfg.Root,
		UnsortedBucket:  cfg.UnsortedBucket,
		DefaultTagColor: cfg.DefaultTagColor,
		MaxTagLength:    cfg.MaxTagLength,
		Workers:         cfg.Workers,
	})
}

func (s *Service) Repositories() *store.Repositories {
	return s.repos
}

func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

func (s *Service) Ingest(ctx context.Context, request ingest.Request) ingest.Result {
	return s.pipeline.Ingest(ctx, request)
}

func (s *Service) IngestBatch(ctx context.Context, requests []ingest.Request) []ingest.Result {
	return s.pipeline.IngestBatch(ctx, requests)
}

// ListTags returns tags in use, or every tag when all is set
func (s *Service) ListTags(ctx context.Context, all bool) ([]models.Tag, error) {
	filter := store.TagsInUse
	if all {
		filter = store.AllTags
	}
	return s.repos.Tags.List(ctx, filter)
}

// CreateTag registers a tag without attaching it to a file. parentID is
// optional and must reference an existing tag.
func (s *Service) CreateTag(ctx context.Context, name, color string, category *string, parentID *uint) (*models.Tag, error) {
	if color == "" {
		color = s.tagColor
	}

	tag := &models.Tag{
		Name:     name,
		Color:    color,
		Category: category,
		ParentID: parentID,
	}
	if err := s.repos.Tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *Service) LinkTag(ctx context.Context, fileID uint, name, color string) (bool, error) {
	if color == "" {
		color = s.tagColor
	}
	return s.repos.Associations.LinkByName(ctx, fileID, name, color)
}

func (s *Service) UnlinkTag(ctx context.Context, fileID uint, name string) (bool, error) {
	return s.repos.Associations.UnlinkByName(ctx, fileID, name)
}

func (s *Service) GetFile(ctx context.Context, id uint) (*models.FileWithTags, error) {
	file, err := s.repos.Files.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	tags, err := s.repos.Associations.ListTagsForFile(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.FileWithTags{File: *file, Tags: tags}, nil
}

// DeleteFile removes a file record with all of its links. With purge the
// file is also removed from disk once the deletion committed. Deleting an
// unknown file returns false without an error.
func (s *Service) DeleteFile(ctx context.Context, id uint, purge bool) (bool, error) {
	file, err := s.repos.Files.Get(ctx, id)
	if store.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	removed, err := s.repos.Files.Delete(ctx, id)
	if store.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Info("Deleted file %d '%s' with %d tag links", id, file.Path, removed)

	if purge {
		if err := os.Remove(file.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return true, &ingest.FilesystemError{Op: "remove", Path: file.Path, Inner: err}
		}
	}
	return true, nil
}

// BatchDeleteFiles removes several files in one transaction
func (s *Service) BatchDeleteFiles(ctx context.Context, ids []uint) (int, error) {
	deleted, err := s.repos.Files.BatchDelete(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Deleted %d files", deleted)
	return deleted, nil
}

func (s *Service) UpdateMarketplaceURL(ctx context.Context, id uint, url *string) error {
	return s.repos.Files.UpdateMarketplaceURL(ctx, id, url)
}

func (s *Service) ListFiles(ctx context.Context) ([]models.FileWithTags, error) {
	return s.repos.Search.Search(ctx, store.Query{})
}

func (s *Service) SearchByText(ctx context.Context, query string) ([]models.FileWithTags, error) {
	return s.repos.Search.SearchByText(ctx, query)
}

func (s *Service) SearchByTags(ctx context.Context, names []string) ([]models.FileWithTags, error) {
	return s.repos.Search.SearchByTags(ctx, names)
}

func (s *Service) Search(ctx context.Context, query store.Query) ([]models.FileWithTags, error) {
	return s.repos.Search.Search(ctx, query)
}

func (s *Service) BatchLinkTag(ctx context.Context, ids []uint, name, color string) (store.BatchLinkResult, error) {
	if color == "" {
		color = s.tagColor
	}
	return s.repos.Associations.BatchLink(ctx, ids, name, color)
}

func (s *Service) BatchUnlinkTag(ctx context.Context, ids []uint, name string) (store.BatchUnlinkResult, error) {
	return s.repos.Associations.BatchUnlink(ctx, ids, name)
}

func (s *Service) Reconcile(ctx context.Context) (*reconcile.SyncResult, error) {
	return s.reconciler.Scan(ctx)
}

func (s *Service) ReconcileAsync(ctx context.Context) <-chan reconcile.Outcome {
	return s.reconciler.ScanAsync(ctx)
}

func (s *Service) RemoveMissing(ctx context.Context, ids []uint) (int, error) {
	return s.reconciler.RemoveMissing(ctx, ids)
}

// LastSync returns the most recent reconcile run
func (s *Service) LastSync(ctx context.Context) (*models.SyncRun, error) {
	return s.repos.SyncRuns.Latest(ctx)
}

// Duplicates lists groups of files sharing the same content
func (s *Service) Duplicates(ctx context.Context) ([][]models.File, error) {
	return s.detector.Groups(ctx)
}

// RecountTags repairs tag usage counters from the link table
func (s *Service) RecountTags(ctx context.Context) (int, error) {
	corrected, err := s.repos.Tags.Recount(ctx)
	if err != nil {
		return 0, err
	}

	if corrected > 0 {
		s.logger.Warn("Corrected %d tag usage counters", corrected)
	}
	return corrected, nil
}
