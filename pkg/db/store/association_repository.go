package store

import (
	"context"
	"fmt"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchLinkResult reports how many files gained a tag and how many already had it
type BatchLinkResult struct {
	Linked  int `json:"linkedCount"`
	Skipped int `json:"skippedCount"`
}

// BatchUnlinkResult reports how many files lost a tag and how many never had it
type BatchUnlinkResult struct {
	Unlinked int `json:"unlinkedCount"`
	Skipped  int `json:"skippedCount"`
}

// AssociationRepository maintains file-tag links. Every link mutation adjusts
// the tag usage counter inside the same transaction.
type AssociationRepository struct {
	db   *gorm.DB
	tags *TagRepository
}

func NewAssociationRepository(db *gorm.DB, tags *TagRepository) *AssociationRepository {
	return &AssociationRepository{
		db:   db,
		tags: tags,
	}
}

func (r *AssociationRepository) WithTx(tx *gorm.DB) *AssociationRepository {
	return &AssociationRepository{
		db:   tx,
		tags: r.tags.WithTx(tx),
	}
}

// Link attaches an existing tag to a file. Linking an already linked pair
// returns false and leaves the counter untouched.
func (r *AssociationRepository) Link(ctx context.Context, fileID, tagID uint) (bool, error) {
	var linked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		linked, err = r.WithTx(tx).link(ctx, fileID, tagID)
		return err
	})
	if err != nil {
		return false, wrapError(err, "link tag", fmt.Sprintf("file=%d tag=%d", fileID, tagID))
	}
	return linked, nil
}

// LinkByName resolves or creates the tag called name and attaches it to the file
func (r *AssociationRepository) LinkByName(ctx context.Context, fileID uint, name, color string) (bool, error) {
	var linked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.WithTx(tx)
		if err := requireFile(tx, fileID); err != nil {
			return err
		}

		tag, _, err := repo.tags.getOrCreate(ctx, name, color)
		if err != nil {
			return err
		}

		linked, err = repo.link(ctx, fileID, tag.ID)
		return err
	})
	if err != nil {
		return false, wrapError(err, "link tag", fmt.Sprintf("file=%d name=%q", fileID, name))
	}
	return linked, nil
}

// Unlink detaches a tag from a file. The tag is deleted when this was its last link.
func (r *AssociationRepository) Unlink(ctx context.Context, fileID, tagID uint) (bool, error) {
	var unlinked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		unlinked, err = r.WithTx(tx).unlink(ctx, fileID, tagID)
		return err
	})
	if err != nil {
		return false, wrapError(err, "unlink tag", fmt.Sprintf("file=%d tag=%d", fileID, tagID))
	}
	return unlinked, nil
}

// UnlinkByName detaches the tag called name from a file. An unknown tag name is a no-op.
func (r *AssociationRepository) UnlinkByName(ctx context.Context, fileID uint, name string) (bool, error) {
	var unlinked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.WithTx(tx)
		if err := requireFile(tx, fileID); err != nil {
			return err
		}

		tag, err := repo.tags.FindByName(ctx, name)
		if IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}

		unlinked, err = repo.unlink(ctx, fileID, tag.ID)
		return err
	})
	if err != nil {
		return false, wrapError(err, "unlink tag", fmt.Sprintf("file=%d name=%q", fileID, name))
	}
	return unlinked, nil
}

// BatchLink attaches the tag called name to every file in fileIDs. Unknown
// file ids abort the whole batch. A tag created by the batch that ends up
// without any link is removed again.
func (r *AssociationRepository) BatchLink(ctx context.Context, fileIDs []uint, name, color string) (BatchLinkResult, error) {
	var result BatchLinkResult
	if err := r.tags.ValidateName(name); err != nil {
		return result, err
	}

	ids := uniqueIDs(fileIDs)
	if len(ids) == 0 {
		return result, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.WithTx(tx)
		if err := requireFiles(tx, ids); err != nil {
			return err
		}

		tag, created, err := repo.tags.getOrCreate(ctx, name, color)
		if err != nil {
			return err
		}

		for _, id := range ids {
			linked, err := repo.link(ctx, id, tag.ID)
			if err != nil {
				return err
			}
			if linked {
				result.Linked++
			} else {
				result.Skipped++
			}
		}

		if created && result.Linked == 0 {
			_, err = repo.tags.DeleteIfUnused(ctx, tag.ID)
		}
		return err
	})
	if err != nil {
		return BatchLinkResult{}, wrapError(err, "batch link tag", fmt.Sprintf("name=%q files=%d", name, len(ids)))
	}
	return result, nil
}

// BatchUnlink detaches the tag called name from every file in fileIDs
func (r *AssociationRepository) BatchUnlink(ctx context.Context, fileIDs []uint, name string) (BatchUnlinkResult, error) {
	var result BatchUnlinkResult

	ids := uniqueIDs(fileIDs)
	if len(ids) == 0 {
		return result, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.WithTx(tx)

		tag, err := repo.tags.FindByName(ctx, name)
		if IsNotFound(err) {
			result.Skipped = len(ids)
			return nil
		}
		if err != nil {
			return err
		}

		for _, id := range ids {
			unlinked, err := repo.unlink(ctx, id, tag.ID)
			if err != nil {
				return err
			}
			if unlinked {
				result.Unlinked++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return BatchUnlinkResult{}, wrapError(err, "batch unlink tag", fmt.Sprintf("name=%q files=%d", name, len(ids)))
	}
	return result, nil
}

// UnlinkAll removes every link of a file and returns how many were removed
func (r *AssociationRepository) UnlinkAll(ctx context.Context, fileID uint) (int, error) {
	var removed int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.WithTx(tx)

		var tagIDs []uint
		if err := tx.Model(&models.FileTag{}).Where("file_id = ?", fileID).Pluck("tag_id", &tagIDs).Error; err != nil {
			return err
		}

		for _, tagID := range tagIDs {
			unlinked, err := repo.unlink(ctx, fileID, tagID)
			if err != nil {
				return err
			}
			if unlinked {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapError(err, "unlink all tags", fmt.Sprintf("file=%d", fileID))
	}
	return removed, nil
}

// ListTagsForFile returns the tags of a single file ordered by name
func (r *AssociationRepository) ListTagsForFile(ctx context.Context, fileID uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Joins("JOIN file_tags ON file_tags.tag_id = tags.id").
		Where("file_tags.file_id = ?", fileID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, wrapError(err, "list file tags", fmt.Sprintf("file=%d", fileID))
	}
	return tags, nil
}

// TagsForFiles loads the tags of many files with a single query
func (r *AssociationRepository) TagsForFiles(ctx context.Context, fileIDs []uint) (map[uint][]models.Tag, error) {
	tags := make(map[uint][]models.Tag, len(fileIDs))
	if len(fileIDs) == 0 {
		return tags, nil
	}

	type fileTagRow struct {
		models.Tag
		FileID uint
	}

	var rows []fileTagRow
	err := r.db.WithContext(ctx).
		Table("tags").
		Select("tags.*, file_tags.file_id AS file_id").
		Joins("JOIN file_tags ON file_tags.tag_id = tags.id").
		Where("file_tags.file_id IN ?", fileIDs).
		Order("tags.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapError(err, "load tags for files", fmt.Sprintf("files=%d", len(fileIDs)))
	}

	for _, row := range rows {
		tags[row.FileID] = append(tags[row.FileID], row.Tag)
	}
	return tags, nil
}

func (r *AssociationRepository) link(ctx context.Context, fileID, tagID uint) (bool, error) {
	if err := requireFile(r.db, fileID); err != nil {
		return false, err
	}
	if _, err := r.tags.Get(ctx, tagID); err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_id"}, {Name: "tag_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(&models.FileTag{FileID: fileID, TagID: tagID})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	if err := r.tags.IncrementUsage(ctx, tagID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *AssociationRepository) unlink(ctx context.Context, fileID, tagID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("file_id = ? AND tag_id = ?", fileID, tagID).
		Delete(&models.FileTag{})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	if _, err := r.tags.Release(ctx, tagID); err != nil {
		return false, err
	}
	return true, nil
}

func requireFile(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.File{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &NotFoundError{Search: fmt.Sprintf("file (id=%d)", id)}
	}
	return nil
}

func requireFiles(tx *gorm.DB, ids []uint) error {
	var found []uint
	if err := tx.Model(&models.File{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	known := make(map[uint]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return &NotFoundError{Search: fmt.Sprintf("file (id=%d)", id)}
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
