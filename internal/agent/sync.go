package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwantia/gocatalog/pkg/log"
	"github.com/mwantia/gocatalog/pkg/reconcile"
)

// Reconciler starts a background scan of the library
type Reconciler interface {
	ReconcileAsync(ctx context.Context) <-chan reconcile.Outcome
}

// parseInterval reads the sync interval. An empty or zero interval disables
// periodic scans.
func parseInterval(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid sync interval '%s': %w", raw, err)
	}
	if interval < 0 {
		return 0, fmt.Errorf("invalid sync interval '%s': must not be negative", raw)
	}
	return interval, nil
}

// runSync scans once on start and then on every tick. Scans never overlap;
// a tick that fires while a scan is running is dropped.
func runSync(ctx context.Context, interval time.Duration, reconciler Reconciler, logger log.LoggerService) {
	if interval <= 0 {
		logger.Info("Periodic sync is disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// the scan observes ctx, so waiting for its outcome stays bounded
		if outcome, ok := <-reconciler.ReconcileAsync(ctx); ok {
			report(outcome, logger)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func report(outcome reconcile.Outcome, logger log.LoggerService) {
	if outcome.Err != nil {
		logger.Error("Sync failed: %v", outcome.Err)
		return
	}

	result := outcome.Result
	if len(result.MissingFiles) > 0 {
		logger.Warn("Sync found %d missing files, run 'gocatalog sync clean' to remove them", len(result.MissingFiles))
	}
	logger.Debug("Sync run %d checked %d files", result.RunID, result.TotalFiles)
}
