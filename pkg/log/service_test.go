package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	config "github.com/mwantia/gocatalog/internal/config/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Debug, Parse("debug"))
	assert.Equal(t, Warn, Parse(" WARNING "))
	assert.Equal(t, Error, Parse("ERROR"))
	assert.Equal(t, Info, Parse("nonsense"))
	assert.Equal(t, "FATAL", Fatal.String())
}

func TestLoggerService_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerServiceWithWriter("catalog", config.LogServerConfig{Level: "WARN"}, &buf)

	logger.Info("hidden %d", 1)
	logger.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "[catalog]")
}

func TestLoggerService_NamedAppendsPath(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerServiceWithWriter("gocatalog", config.LogServerConfig{Level: "DEBUG"}, &buf)

	logger.Named("ingest").Debug("entry written")

	assert.Contains(t, buf.String(), "[gocatalog/ingest] entry written")
}

func TestLoggerService_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerServiceWithWriter("sync", config.LogServerConfig{Level: "INFO", JSON: true}, &buf)

	logger.Error("scan failed: %s", "disk gone")

	var entry logEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "sync", entry.Service)
	assert.Equal(t, "scan failed: disk gone", entry.Message)
}

func TestLoggerService_MessageWithoutArgsIsVerbatim(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerServiceWithWriter("", config.LogServerConfig{Level: "INFO"}, &buf)

	logger.Info("100% done")

	assert.Contains(t, buf.String(), "100% done")
}
