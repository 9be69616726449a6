package models

import (
	"time"

	"gorm.io/datatypes"
)

// File represents a single extracted asset file tracked by the catalog
type File struct {
	ID   uint   `gorm:"primaryKey"                   json:"id"`
	Path string `gorm:"type:text;not null;uniqueIndex" json:"filePath"`
	Name string `gorm:"type:text;not null;index"     json:"fileName"`

	// File metadata
	Size       int64     `gorm:"not null;default:0" json:"fileSize"`
	Hash       string    `gorm:"type:text;index"    json:"fileHash,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`

	// Marketplace linkage
	ProductID      *int64  `json:"productId,omitempty"`
	ShopName       string  `gorm:"type:text;index" json:"shopName,omitempty"`
	ProductName    string  `gorm:"type:text;index" json:"productName,omitempty"`
	Price          *int64  `json:"price,omitempty"`
	MarketplaceURL *string `gorm:"type:text"       json:"marketplaceUrl,omitempty"`
	ThumbnailPath  string  `gorm:"type:text"       json:"thumbnailPath,omitempty"`

	Encoding string         `gorm:"type:text" json:"encodingInfo,omitempty"`
	Metadata datatypes.JSON `json:"metadata,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileMetadata is the document stored in File.Metadata
type FileMetadata struct {
	Archive   string `json:"archive,omitempty"`
	EntryPath string `json:"entryPath,omitempty"`
	RawName   string `json:"rawName,omitempty"`
}

// FileWithTags pairs a file with the tags currently attached to it
type FileWithTags struct {
	File File  `json:"file"`
	Tags []Tag `json:"tags"`
}
