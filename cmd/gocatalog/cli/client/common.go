package client

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/gocatalog/cmd/gocatalog/cli/output"
	"github.com/mwantia/gocatalog/pkg/catalog"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/mwantia/gocatalog/pkg/log"
	"github.com/spf13/cobra"

	config "github.com/mwantia/gocatalog/internal/config/server"
)

// session bundles everything a single client command needs
type session struct {
	cfg     *config.BaseServerConfig
	logger  log.LoggerService
	store   *store.SQLiteStore
	catalog *catalog.Service
	format  output.Format
}

// openSession loads the configuration, opens and migrates the store and
// builds the catalog service on top of it.
func openSession(cmd *cobra.Command) (*session, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, err
	}

	s.store, err = store.OpenFromConfig(cmd.Context(), s.cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}

	s.catalog, err = catalog.NewFromConfig(s.store, s.logger, s.cfg.Catalog)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// openRawSession connects to the store without applying migrations
func openRawSession(cmd *cobra.Command) (*session, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, err
	}

	sc, err := store.ConfigFromMetadata(s.cfg.Metadata)
	if err != nil {
		return nil, err
	}
	s.store, err = store.NewSQLiteStore(sc)
	if err != nil {
		return nil, err
	}
	if err := s.store.Connect(cmd.Context()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to connect to catalog store: %w", err)
	}
	return s, nil
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	raw, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(raw)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg: cfg,
		// Command output owns stdout
		logger: log.NewLoggerServiceWithWriter("gocatalog", cfg.Log, os.Stderr),
		format: format,
	}, nil
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("Unable to close catalog store: %v", err)
		}
	}
}

func (s *session) render(w io.Writer, table output.Table, data any) error {
	return output.NewFormatter(s.format).Format(w, table, data)
}

// parseIDs converts positional arguments into file ids
func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 0)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid file id '%s'", arg)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func formatSize(size int64) string {
	if size < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
