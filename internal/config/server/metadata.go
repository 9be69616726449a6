package server

// MetadataServerConfig holds the catalog store configuration
type MetadataServerConfig struct {
	Type   string               `mapstructure:"type"   yaml:"type"   validate:"required,oneof=sqlite"`
	SQLite MetadataSQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
}

// MetadataSQLiteConfig holds SQLite-specific configuration
type MetadataSQLiteConfig struct {
	Path        string `mapstructure:"path"         yaml:"path"         validate:"required"`
	BusyTimeout int    `mapstructure:"busy_timeout" yaml:"busy_timeout" validate:"gte=0"`
	Debug       bool   `mapstructure:"debug"        yaml:"debug"`
}
