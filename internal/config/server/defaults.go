package server

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Metadata: MetadataServerConfig{
			Type: "sqlite",
			SQLite: MetadataSQLiteConfig{
				Path:        filepath.Join(defaultDataDir(), "catalog.db"),
				BusyTimeout: 5000,
				Debug:       false,
			},
		},

		Catalog: CatalogServerConfig{
			Root:            filepath.Join(defaultDataDir(), "library"),
			UnsortedBucket:  "Unsorted",
			DefaultTagColor: "#007ACC",
			MaxTagLength:    50,
			Workers:         4,
			SyncInterval:    "15m",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gocatalog")
	}
	return ".gocatalog"
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("metadata.type", defaults.Metadata.Type)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)
	viper.SetDefault("metadata.sqlite.busy_timeout", defaults.Metadata.SQLite.BusyTimeout)
	viper.SetDefault("metadata.sqlite.debug", defaults.Metadata.SQLite.Debug)

	viper.SetDefault("catalog.root", defaults.Catalog.Root)
	viper.SetDefault("catalog.unsorted_bucket", defaults.Catalog.UnsortedBucket)
	viper.SetDefault("catalog.default_tag_color", defaults.Catalog.DefaultTagColor)
	viper.SetDefault("catalog.max_tag_length", defaults.Catalog.MaxTagLength)
	viper.SetDefault("catalog.workers", defaults.Catalog.Workers)
	viper.SetDefault("catalog.sync_interval", defaults.Catalog.SyncInterval)
}
