package dedup

import (
	"context"
	"sort"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/db/store"
)

// Detector reports files that share content. It never blocks ingestion,
// callers only annotate their results with its findings.
type Detector struct {
	files *store.FileRepository
}

func NewDetector(files *store.FileRepository) *Detector {
	return &Detector{
		files: files,
	}
}

// CheckDuplicate returns every file with the given hash except excludeID.
// Pass zero to exclude nothing.
func (d *Detector) CheckDuplicate(ctx context.Context, hash string, excludeID uint) ([]models.File, error) {
	matches, err := d.files.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	duplicates := make([]models.File, 0, len(matches))
	for _, match := range matches {
		if match.ID != excludeID {
			duplicates = append(duplicates, match)
		}
	}
	return duplicates, nil
}

// Groups lists all sets of files sharing a hash, largest set first
func (d *Detector) Groups(ctx context.Context) ([][]models.File, error) {
	files, err := d.files.FindSharedHashes(ctx)
	if err != nil {
		return nil, err
	}

	var groups [][]models.File
	for i, file := range files {
		if i == 0 || files[i-1].Hash != file.Hash {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], file)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i]) > len(groups[j])
	})
	return groups, nil
}
