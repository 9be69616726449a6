package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"gorm.io/gorm"
)

// Query combines a free text filter with a set of required tags. Both parts
// are optional; an empty query matches every file.
type Query struct {
	Text string   `json:"text,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// SearchEngine answers read-only queries over files and their tags
type SearchEngine struct {
	db           *gorm.DB
	associations *AssociationRepository
}

func NewSearchEngine(db *gorm.DB, associations *AssociationRepository) *SearchEngine {
	return &SearchEngine{
		db:           db,
		associations: associations,
	}
}

func (e *SearchEngine) WithTx(tx *gorm.DB) *SearchEngine {
	return &SearchEngine{
		db:           tx,
		associations: e.associations.WithTx(tx),
	}
}

func (e *SearchEngine) SearchByText(ctx context.Context, text string) ([]models.FileWithTags, error) {
	return e.Search(ctx, Query{Text: text})
}

// SearchByTags returns files carrying every one of the given tags
func (e *SearchEngine) SearchByTags(ctx context.Context, tags []string) ([]models.FileWithTags, error) {
	return e.Search(ctx, Query{Tags: tags})
}

func (e *SearchEngine) Search(ctx context.Context, query Query) ([]models.FileWithTags, error) {
	db := e.db.WithContext(ctx)
	stmt := textFilter(db.Model(&models.File{}), query.Text)

	if names := uniqueNames(query.Tags); len(names) > 0 {
		tagged := db.Session(&gorm.Session{NewDB: true}).
			Table("file_tags").
			Select("file_tags.file_id").
			Joins("JOIN tags ON tags.id = file_tags.tag_id").
			Where("tags.name IN ?", names).
			Group("file_tags.file_id").
			Having("COUNT(DISTINCT tags.id) = ?", len(names))
		stmt = stmt.Where("files.id IN (?)", tagged)
	}

	var files []models.File
	if err := stmt.Order("files.created_at DESC").Order("files.id DESC").Find(&files).Error; err != nil {
		return nil, wrapError(err, "search files", fmt.Sprintf("text=%q tags=%v", query.Text, query.Tags))
	}

	return e.attachTags(ctx, files)
}

func (e *SearchEngine) attachTags(ctx context.Context, files []models.File) ([]models.FileWithTags, error) {
	ids := make([]uint, 0, len(files))
	for _, file := range files {
		ids = append(ids, file.ID)
	}

	tags, err := e.associations.TagsForFiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]models.FileWithTags, 0, len(files))
	for _, file := range files {
		fileTags := tags[file.ID]
		if fileTags == nil {
			fileTags = []models.Tag{}
		}
		results = append(results, models.FileWithTags{
			File: file,
			Tags: fileTags,
		})
	}
	return results, nil
}

// textFilter restricts db to files whose name, shop or product contains text.
// LIKE wildcards inside text are matched literally.
func textFilter(db *gorm.DB, text string) *gorm.DB {
	text = strings.TrimSpace(text)
	if text == "" {
		return db
	}

	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	return db.Where(
		"LOWER(files.name) LIKE ? ESCAPE '\\' OR LOWER(files.shop_name) LIKE ? ESCAPE '\\' OR LOWER(files.product_name) LIKE ? ESCAPE '\\'",
		pattern, pattern, pattern,
	)
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	return unique
}
