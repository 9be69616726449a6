package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/marketplace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FileRepository stores one record per cataloged file
type FileRepository struct {
	db           *gorm.DB
	associations *AssociationRepository
}

func NewFileRepository(db *gorm.DB, associations *AssociationRepository) *FileRepository {
	return &FileRepository{
		db:           db,
		associations: associations,
	}
}

func (r *FileRepository) WithTx(tx *gorm.DB) *FileRepository {
	return &FileRepository{
		db:           tx,
		associations: r.associations.WithTx(tx),
	}
}

// Create inserts a new file record and returns its id
func (r *FileRepository) Create(ctx context.Context, file *models.File) (uint, error) {
	if strings.TrimSpace(file.Path) == "" {
		return 0, &ValidationError{Field: "path", Reason: "must not be empty"}
	}
	if file.Name == "" {
		return 0, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if file.Size < 0 {
		return 0, &ValidationError{Field: "size", Reason: "must not be negative"}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.File{}).Where("path = ?", file.Path).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return &ConflictError{Conflict: fmt.Sprintf("file path %q is already cataloged", file.Path)}
		}

		return tx.Omit(clause.Associations).Create(file).Error
	})
	if err != nil {
		return 0, wrapError(err, "create file", fmt.Sprintf("path=%q", file.Path))
	}
	return file.ID, nil
}

func (r *FileRepository) Get(ctx context.Context, id uint) (*models.File, error) {
	var file models.File
	if err := r.db.WithContext(ctx).First(&file, id).Error; err != nil {
		return nil, wrapError(err, "get file", fmt.Sprintf("id=%d", id))
	}
	return &file, nil
}

func (r *FileRepository) FindByPath(ctx context.Context, path string) (*models.File, error) {
	var file models.File
	if err := r.db.WithContext(ctx).Where("path = ?", path).First(&file).Error; err != nil {
		return nil, wrapError(err, "find file", fmt.Sprintf("path=%q", path))
	}
	return &file, nil
}

// FindByHash returns every file whose content hash equals hash
func (r *FileRepository) FindByHash(ctx context.Context, hash string) ([]models.File, error) {
	var files []models.File
	if hash == "" {
		return files, nil
	}

	if err := r.db.WithContext(ctx).Where("hash = ?", hash).Order("id ASC").Find(&files).Error; err != nil {
		return nil, wrapError(err, "find files by hash", fmt.Sprintf("hash=%s", hash))
	}
	return files, nil
}

// UpdateMarketplaceURL sets or clears the product page of a file. The
// product id is derived from the url and cleared together with it.
func (r *FileRepository) UpdateMarketplaceURL(ctx context.Context, id uint, url *string) error {
	var productID *int64
	if url != nil {
		trimmed := strings.TrimSpace(*url)
		if trimmed == "" {
			url = nil
		} else {
			if err := marketplace.ValidateURL(trimmed); err != nil {
				return &ValidationError{Field: "marketplace url", Reason: err.Error()}
			}
			if pid, ok := marketplace.ProductID(trimmed); ok {
				productID = &pid
			}
			url = &trimmed
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireFile(tx, id); err != nil {
			return err
		}

		return tx.Model(&models.File{}).Where("id = ?", id).Updates(map[string]any{
			"marketplace_url": url,
			"product_id":      productID,
			"updated_at":      time.Now().UTC(),
		}).Error
	})
	return wrapError(err, "update marketplace url", fmt.Sprintf("id=%d", id))
}

// RefreshContent records new size, hash and modification time after the file changed on disk
func (r *FileRepository) RefreshContent(ctx context.Context, id uint, size int64, hash string, modifiedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", id).Updates(map[string]any{
		"size":        size,
		"hash":        hash,
		"modified_at": modifiedAt.UTC(),
		"updated_at":  time.Now().UTC(),
	})
	if result.Error != nil {
		return wrapError(result.Error, "refresh file content", fmt.Sprintf("id=%d", id))
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Search: fmt.Sprintf("refresh file content (id=%d)", id)}
	}
	return nil
}

// Delete removes a file together with all of its links. Tags that lose
// their last link are deleted as well. It returns the number of links removed.
func (r *FileRepository) Delete(ctx context.Context, id uint) (int, error) {
	var removed int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireFile(tx, id); err != nil {
			return err
		}

		var err error
		removed, err = r.associations.WithTx(tx).UnlinkAll(ctx, id)
		if err != nil {
			return err
		}

		return tx.Delete(&models.File{}, id).Error
	})
	if err != nil {
		return 0, wrapError(err, "delete file", fmt.Sprintf("id=%d", id))
	}
	return removed, nil
}

// BatchDelete removes several files in one transaction. An unknown id aborts the batch.
func (r *FileRepository) BatchDelete(ctx context.Context, ids []uint) (int, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return 0, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.WithTx(tx)
		if err := requireFiles(tx, unique); err != nil {
			return err
		}

		for _, id := range unique {
			if _, err := repo.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapError(err, "batch delete files", fmt.Sprintf("files=%d", len(unique)))
	}
	return len(unique), nil
}

// ListAll returns every file, newest first
func (r *FileRepository) ListAll(ctx context.Context) ([]models.File, error) {
	var files []models.File
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&files).Error; err != nil {
		return nil, wrapError(err, "list files", "all")
	}
	return files, nil
}

func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.File{}).Count(&count).Error; err != nil {
		return 0, wrapError(err, "count files", "all")
	}
	return count, nil
}

// SearchByText matches query case-insensitively against file name, shop
// name and product name. A blank query returns every file.
func (r *FileRepository) SearchByText(ctx context.Context, query string) ([]models.File, error) {
	var files []models.File
	err := textFilter(r.db.WithContext(ctx).Model(&models.File{}), query).
		Order("files.created_at DESC").
		Order("files.id DESC").
		Find(&files).Error
	if err != nil {
		return nil, wrapError(err, "search files", fmt.Sprintf("query=%q", query))
	}
	return files, nil
}

// FindSharedHashes returns every file whose hash is shared with at least one
// other file, ordered by hash and id.
func (r *FileRepository) FindSharedHashes(ctx context.Context) ([]models.File, error) {
	db := r.db.WithContext(ctx)
	shared := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.File{}).
		Select("hash").
		Where("hash <> ''").
		Group("hash").
		Having("COUNT(*) > 1")

	var files []models.File
	if err := db.Where("hash IN (?)", shared).Order("hash ASC").Order("id ASC").Find(&files).Error; err != nil {
		return nil, wrapError(err, "find shared hashes", "all")
	}
	return files, nil
}
