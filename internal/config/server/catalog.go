package server

// CatalogServerConfig controls where archives are extracted and how the
// catalog is reconciled against the filesystem.
type CatalogServerConfig struct {
	Root            string `mapstructure:"root"              yaml:"root"              validate:"required"`
	UnsortedBucket  string `mapstructure:"unsorted_bucket"   yaml:"unsorted_bucket"   validate:"required,excludesall=/\\"`
	DefaultTagColor string `mapstructure:"default_tag_color" yaml:"default_tag_color" validate:"required,hexcolor"`
	MaxTagLength    int    `mapstructure:"max_tag_length"    yaml:"max_tag_length"    validate:"gt=0"`
	Workers         int    `mapstructure:"workers"           yaml:"workers"           validate:"gt=0"`
	SyncInterval    string `mapstructure:"sync_interval"     yaml:"sync_interval"`
}
