package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/mwantia/gocatalog/pkg/dedup"
	"github.com/mwantia/gocatalog/pkg/ingest"
	"github.com/mwantia/gocatalog/pkg/log"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"
)

// MissingFile is a cataloged file that no longer exists on disk
type MissingFile struct {
	ID          uint   `json:"id"`
	Path        string `json:"filePath"`
	Name        string `json:"fileName"`
	ShopName    string `json:"shopName,omitempty"`
	ProductName string `json:"productName,omitempty"`
}

// SyncResult summarizes one scan of the library
type SyncResult struct {
	RunID              uint          `json:"runId,omitempty"`
	TotalFiles         int           `json:"totalFiles"`
	MissingFiles       []MissingFile `json:"missingFiles"`
	OrphanedFilesCount int           `json:"orphanedFilesCount"`
	UpdatedFilesCount  int           `json:"updatedFilesCount"`
	Duration           time.Duration `json:"duration"`
}

// Outcome is delivered by ScanAsync
type Outcome struct {
	Result *SyncResult
	Err    error
}

type fileState struct {
	file    models.File
	missing bool
	updated bool
}

// Reconciler audits the catalog against the managed library on disk
type Reconciler struct {
	store   store.CatalogStore
	repos   *store.Repositories
	root    string
	workers int
	logger  log.LoggerService
}

func NewReconciler(catalog store.CatalogStore, repos *store.Repositories, root string, workers int, logger log.LoggerService) *Reconciler {
	if workers <= 0 {
		workers = 1
	}

	return &Reconciler{
		store:   catalog,
		repos:   repos,
		root:    root,
		workers: workers,
		logger:  logger.Named("reconcile"),
	}
}

// ScanAsync runs Scan in the background. The channel receives exactly one
// outcome and is closed afterwards.
func (r *Reconciler) ScanAsync(ctx context.Context) <-chan Outcome {
	outcomes := make(chan Outcome, 1)

	go func() {
		defer close(outcomes)

		result, err := r.Scan(ctx)
		outcomes <- Outcome{Result: result, Err: err}
	}()

	return outcomes
}

// Scan compares every record with the file at its path. Records whose file
// changed are rehashed and refreshed in place; files under the root that no
// record points at are counted as orphans.
func (r *Reconciler) Scan(ctx context.Context) (*SyncResult, error) {
	started := time.Now()

	result, err := r.scan(ctx)
	if result == nil {
		result = &SyncResult{}
	}
	result.Duration = time.Since(started)

	run := &models.SyncRun{
		StartedAt:     started.UTC(),
		FinishedAt:    time.Now().UTC(),
		TotalFiles:    int64(result.TotalFiles),
		MissingFiles:  int64(len(result.MissingFiles)),
		OrphanedFiles: int64(result.OrphanedFilesCount),
		UpdatedFiles:  int64(result.UpdatedFilesCount),
	}
	if err != nil {
		run.LastError = err.Error()
	}
	if recordErr := r.repos.SyncRuns.Create(context.WithoutCancel(ctx), run); recordErr != nil {
		r.logger.Warn("Unable to record sync run: %v", recordErr)
	} else {
		result.RunID = run.ID
	}

	if err != nil {
		r.logger.Error("Scan of '%s' failed: %v", r.root, err)
		return nil, err
	}

	r.logger.Info("Scanned %d files in %s: %d missing, %d orphaned, %d updated",
		result.TotalFiles, result.Duration.Round(time.Millisecond), len(result.MissingFiles),
		result.OrphanedFilesCount, result.UpdatedFilesCount)
	return result, nil
}

func (r *Reconciler) scan(ctx context.Context) (*SyncResult, error) {
	files, err := r.repos.Files.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	checks := pool.NewWithResults[fileState]().
		WithContext(ctx).
		WithMaxGoroutines(r.workers)
	for _, file := range files {
		checks.Go(func(ctx context.Context) (fileState, error) {
			return r.check(ctx, file)
		})
	}
	states, err := checks.Wait()
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		TotalFiles:   len(files),
		MissingFiles: []MissingFile{},
	}
	known := make(map[string]struct{}, len(files))
	for _, file := range files {
		known[filepath.Clean(file.Path)] = struct{}{}
	}

	for _, state := range states {
		switch {
		case state.missing:
			result.MissingFiles = append(result.MissingFiles, MissingFile{
				ID:          state.file.ID,
				Path:        state.file.Path,
				Name:        state.file.Name,
				ShopName:    state.file.ShopName,
				ProductName: state.file.ProductName,
			})
		case state.updated:
			result.UpdatedFilesCount++
		}
	}
	sort.Slice(result.MissingFiles, func(i, j int) bool {
		return result.MissingFiles[i].ID < result.MissingFiles[j].ID
	})

	result.OrphanedFilesCount, err = r.countOrphans(ctx, known)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// check stats a single record and refreshes it when size or mtime differ
func (r *Reconciler) check(ctx context.Context, file models.File) (fileState, error) {
	state := fileState{file: file}

	info, err := os.Stat(file.Path)
	if isMissing(info, err) {
		state.missing = true
		return state, nil
	}
	if err != nil {
		r.logger.Warn("Unable to stat '%s': %v", file.Path, err)
		return state, nil
	}

	modified := info.ModTime().Truncate(time.Second)
	if info.Size() == file.Size && modified.Equal(file.ModifiedAt.Truncate(time.Second)) {
		return state, nil
	}

	hash, size, err := dedup.HashFile(file.Path)
	if err != nil {
		r.logger.Warn("Unable to rehash '%s': %v", file.Path, err)
		return state, nil
	}
	if err := r.repos.Files.RefreshContent(ctx, file.ID, size, hash, info.ModTime()); err != nil {
		return state, err
	}

	r.logger.Debug("Refreshed '%s' (size %d -> %d)", file.Path, file.Size, size)
	state.updated = true
	return state, nil
}

// isMissing reports whether a stat result means the record lost its file.
// Stat failures other than a missing path do not count.
func isMissing(info fs.FileInfo, err error) bool {
	if err != nil {
		return errors.Is(err, fs.ErrNotExist)
	}
	return !info.Mode().IsRegular()
}

// countOrphans walks the root and counts regular files no record points at
func (r *Reconciler) countOrphans(ctx context.Context, known map[string]struct{}) (int, error) {
	if r.root == "" {
		return 0, nil
	}

	orphans := 0
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == r.root {
				return filepath.SkipAll
			}
			r.logger.Warn("Skipping '%s': %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || ingest.IsTempFile(path) {
			return nil
		}

		if _, ok := known[filepath.Clean(path)]; !ok {
			orphans++
		}
		return nil
	})
	return orphans, err
}

// RemoveMissing deletes the listed records in one transaction using the same
// cascade as a manual delete. Unknown ids and files that reappeared on disk
// are skipped. It returns the number of deleted records.
func (r *Reconciler) RemoveMissing(ctx context.Context, ids []uint) (int, error) {
	removed := 0
	seen := make(map[uint]struct{}, len(ids))

	err := r.store.Transaction(ctx, func(tx *gorm.DB) error {
		repos := r.repos.WithTx(tx)

		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			file, err := repos.Files.Get(ctx, id)
			if store.IsNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}

			info, err := os.Stat(file.Path)
			if !isMissing(info, err) {
				if err != nil {
					r.logger.Warn("Keeping '%s', unable to stat: %v", file.Path, err)
				} else {
					r.logger.Info("Keeping '%s', it exists on disk again", file.Path)
				}
				continue
			}

			if _, err := repos.Files.Delete(ctx, id); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("Removed %d missing files", removed)
	return removed, nil
}
