package store

import (
	"context"
	"fmt"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTagColor is used whenever a tag is created without an explicit color.
const DefaultTagColor = "#007ACC"

// TagFilter selects which tags List returns
type TagFilter int

const (
	// TagsInUse lists tags with at least one association
	TagsInUse TagFilter = iota
	// AllTags also lists explicitly created tags that are not attached yet
	AllTags
)

// TagRepository owns tag definitions and their usage counters. Counters are
// only ever adjusted by the AssociationRepository.
type TagRepository struct {
	db    *gorm.DB
	names validation.NameValidator
}

func NewTagRepository(db *gorm.DB, names validation.NameValidator) *TagRepository {
	if names == nil {
		names = validation.NewTagNameValidator(validation.DefaultMaxTagLength)
	}
	return &TagRepository{
		db:    db,
		names: names,
	}
}

// WithTx returns a copy bound to an open transaction
func (r *TagRepository) WithTx(tx *gorm.DB) *TagRepository {
	return &TagRepository{
		db:    tx,
		names: r.names,
	}
}

// ValidateName applies the configured name policy
func (r *TagRepository) ValidateName(name string) error {
	if checker, ok := r.names.(interface{ Check(string) error }); ok {
		if err := checker.Check(name); err != nil {
			return &ValidationError{Field: "tag name", Reason: err.Error()}
		}
		return nil
	}

	if !r.names.IsValidName(name) {
		return &ValidationError{Field: "tag name", Reason: fmt.Sprintf("%q is not allowed", name)}
	}
	return nil
}

func (r *TagRepository) Get(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, wrapError(err, "get tag", fmt.Sprintf("id=%d", id))
	}
	return &tag, nil
}

func (r *TagRepository) FindByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, wrapError(err, "find tag", fmt.Sprintf("name=%q", name))
	}
	return &tag, nil
}

// GetOrCreate returns the tag called name, creating it with color if it does
// not exist. The color of an existing tag is never overwritten.
func (r *TagRepository) GetOrCreate(ctx context.Context, name, color string) (*models.Tag, error) {
	tag, _, err := r.getOrCreate(ctx, name, color)
	return tag, err
}

func (r *TagRepository) getOrCreate(ctx context.Context, name, color string) (*models.Tag, bool, error) {
	if err := r.ValidateName(name); err != nil {
		return nil, false, err
	}
	if color == "" {
		color = DefaultTagColor
	}

	var (
		tag     models.Tag
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := models.Tag{Name: name, Color: color}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&candidate)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected == 1

		return tx.Where("name = ?", name).First(&tag).Error
	})
	if err != nil {
		return nil, false, wrapError(err, "get or create tag", fmt.Sprintf("name=%q", name))
	}
	return &tag, created, nil
}

// Create registers a tag explicitly, without attaching it to any file. A set
// ParentID must name an existing tag.
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if err := r.ValidateName(tag.Name); err != nil {
		return err
	}
	if tag.Color == "" {
		tag.Color = DefaultTagColor
	}
	tag.UsageCount = 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Tag{}).Where("name = ?", tag.Name).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return &ConflictError{Conflict: fmt.Sprintf("tag %q already exists", tag.Name)}
		}
		if tag.ParentID != nil {
			if _, err := r.WithTx(tx).Get(ctx, *tag.ParentID); err != nil {
				return err
			}
		}
		return tx.Create(tag).Error
	})
	return wrapError(err, "create tag", fmt.Sprintf("name=%q", tag.Name))
}

// IncrementUsage atomically adds one to the tag's usage counter
func (r *TagRepository) IncrementUsage(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if result.Error != nil {
		return wrapError(result.Error, "increment tag usage", fmt.Sprintf("id=%d", id))
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Search: fmt.Sprintf("increment tag usage (id=%d)", id)}
	}
	return nil
}

// DecrementUsage atomically subtracts one from the tag's usage counter. The
// counter never drops below zero; trying to do so is reported as an error
// because it means the counter is out of step with the link table.
func (r *TagRepository) DecrementUsage(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Where("id = ? AND usage_count > 0", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count - ?", 1))
	if result.Error != nil {
		return wrapError(result.Error, "decrement tag usage", fmt.Sprintf("id=%d", id))
	}
	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return &StoreError{Inner: fmt.Errorf("decrement tag usage (id=%d): usage count is already zero", id)}
}

// DeleteIfUnused removes the tag when its usage counter is zero
func (r *TagRepository) DeleteIfUnused(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND usage_count = 0", id).
		Delete(&models.Tag{})
	if result.Error != nil {
		return false, wrapError(result.Error, "delete unused tag", fmt.Sprintf("id=%d", id))
	}
	return result.RowsAffected == 1, nil
}

// Release decrements the usage counter and deletes the tag if that was its
// last use, as one atomic step.
func (r *TagRepository) Release(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.WithTx(tx)
		if err := repo.DecrementUsage(ctx, id); err != nil {
			return err
		}

		var err error
		deleted, err = repo.DeleteIfUnused(ctx, id)
		return err
	})
	if err != nil {
		return false, wrapError(err, "release tag", fmt.Sprintf("id=%d", id))
	}
	return deleted, nil
}

// List returns tags ordered by usage, most used first
func (r *TagRepository) List(ctx context.Context, filter TagFilter) ([]models.Tag, error) {
	query := r.db.WithContext(ctx).Model(&models.Tag{})
	if filter == TagsInUse {
		query = query.Where("usage_count > 0")
	}

	var tags []models.Tag
	if err := query.Order("usage_count DESC").Order("name ASC").Find(&tags).Error; err != nil {
		return nil, wrapError(err, "list tags", fmt.Sprintf("filter=%d", filter))
	}
	return tags, nil
}

// Recount repairs counters that drifted from the link table and removes tags
// whose corrected count is zero. It returns the number of corrected tags.
func (r *TagRepository) Recount(ctx context.Context) (int, error) {
	const actual = "(SELECT COUNT(*) FROM file_tags WHERE file_tags.tag_id = tags.id)"

	var corrected int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var emptied []uint
		if err := tx.Model(&models.Tag{}).
			Where("usage_count <> "+actual+" AND "+actual+" = 0").
			Pluck("id", &emptied).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Tag{}).
			Where("usage_count <> " + actual).
			UpdateColumn("usage_count", gorm.Expr(actual))
		if result.Error != nil {
			return result.Error
		}
		corrected = int(result.RowsAffected)

		if len(emptied) == 0 {
			return nil
		}
		return tx.Where("id IN ? AND usage_count = 0", emptied).Delete(&models.Tag{}).Error
	})
	if err != nil {
		return 0, wrapError(err, "recount tag usage", "all tags")
	}
	return corrected, nil
}
