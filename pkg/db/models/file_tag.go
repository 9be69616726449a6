package models

import (
	"time"
)

// FileTag links a file to a tag. Both foreign keys restrict deletion so that
// every cascade has to run through the repositories.
type FileTag struct {
	FileID uint `gorm:"primaryKey;autoIncrement:false"`
	TagID  uint `gorm:"primaryKey;autoIncrement:false;index:idx_file_tags_tag"`

	CreatedAt time.Time

	// Relationships
	File File `gorm:"foreignKey:FileID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Tag  Tag  `gorm:"foreignKey:TagID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}
