package store

import (
	"github.com/mwantia/gocatalog/pkg/validation"
	"gorm.io/gorm"
)

// Repositories bundles the catalog repositories sharing one database handle
type Repositories struct {
	Files        *FileRepository
	Tags         *TagRepository
	Associations *AssociationRepository
	Search       *SearchEngine
	SyncRuns     *SyncRunRepository
}

func NewRepositories(db *gorm.DB, names validation.NameValidator) *Repositories {
	tags := NewTagRepository(db, names)
	associations := NewAssociationRepository(db, tags)

	return &Repositories{
		Files:        NewFileRepository(db, associations),
		Tags:         tags,
		Associations: associations,
		Search:       NewSearchEngine(db, associations),
		SyncRuns:     NewSyncRunRepository(db),
	}
}

// WithTx returns repositories that all run inside tx
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return &Repositories{
		Files:        r.Files.WithTx(tx),
		Tags:         r.Tags.WithTx(tx),
		Associations: r.Associations.WithTx(tx),
		Search:       r.Search.WithTx(tx),
		SyncRuns:     r.SyncRuns.WithTx(tx),
	}
}
