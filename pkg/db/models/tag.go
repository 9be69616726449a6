package models

import (
	"time"
)

// Tag represents a freeform label; UsageCount mirrors the number of FileTag rows
// referencing it.
type Tag struct {
	ID       uint    `gorm:"primaryKey"                    json:"id"`
	Name     string  `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Color    string  `gorm:"type:text;not null"            json:"color"`
	Category *string `gorm:"type:text"                     json:"category,omitempty"`
	ParentID *uint   `gorm:"index"                         json:"parentTagId,omitempty"`

	UsageCount int64 `gorm:"not null;default:0" json:"usageCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
