package server

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetServerDefault_IsValid(t *testing.T) {
	cfg := GetServerDefault()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite", cfg.Metadata.Type)
	assert.Equal(t, "Unsorted", cfg.Catalog.UnsortedBucket)
	assert.Equal(t, "#007ACC", cfg.Catalog.DefaultTagColor)
	assert.Equal(t, 50, cfg.Catalog.MaxTagLength)
}

func TestValidate_RejectsBrokenValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BaseServerConfig)
	}{
		{"empty sqlite path", func(c *BaseServerConfig) { c.Metadata.SQLite.Path = "" }},
		{"unknown store type", func(c *BaseServerConfig) { c.Metadata.Type = "postgres" }},
		{"bad tag color", func(c *BaseServerConfig) { c.Catalog.DefaultTagColor = "blue" }},
		{"bucket with separator", func(c *BaseServerConfig) { c.Catalog.UnsortedBucket = "a/b" }},
		{"zero workers", func(c *BaseServerConfig) { c.Catalog.Workers = 0 }},
		{"unknown log level", func(c *BaseServerConfig) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetServerDefault()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadServerConfig_UsesViperOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := t.TempDir()
	viper.Set("catalog.root", root)
	viper.Set("catalog.workers", 2)

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Catalog.Root)
	assert.Equal(t, 2, cfg.Catalog.Workers)
	assert.Equal(t, "10s", cfg.ShutdownTimeout)
}
