package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mwantia/fabric/pkg/container"
	config "github.com/mwantia/gocatalog/internal/config/server"
	"github.com/mwantia/gocatalog/pkg/catalog"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/mwantia/gocatalog/pkg/log"
)

type CatalogAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg     *config.BaseServerConfig
	sc      *container.ServiceContainer
	log     log.LoggerService
	store   *store.SQLiteStore
	catalog *catalog.Service
}

func NewAgent(cfg *config.BaseServerConfig) *CatalogAgent {
	return &CatalogAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("gocatalog", cfg.Log),
	}
}

func (ca *CatalogAgent) setupServices(ctx context.Context) error {
	errs := container.Errors{}

	ca.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](ca.sc,
		container.With[log.LoggerService](),
		container.WithInstance(ca.log)))

	ca.log.Debug("Opening catalog store '%s'...", ca.cfg.Metadata.SQLite.Path)
	s, err := store.OpenFromConfig(ctx, ca.cfg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to open catalog store: %w", err)
	}
	ca.store = s

	svc, err := catalog.NewFromConfig(s, ca.log, ca.cfg.Catalog)
	if err != nil {
		return fmt.Errorf("failed to create catalog service: %w", err)
	}
	ca.catalog = svc

	ca.log.Debug("Registering 'CatalogService'...")
	errs.Add(container.Register[catalog.Service](ca.sc,
		container.WithInstance(ca.catalog)))

	return errs.Errors()
}

// Serve runs the periodic reconcile loop until the context is cancelled or
// the process receives an interrupt.
func (ca *CatalogAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ca.mutex.Lock()

	if err := ca.setupServices(ctx); err != nil {
		ca.mutex.Unlock()
		ca.close()
		return err
	}

	interval, err := parseInterval(ca.cfg.Catalog.SyncInterval)
	if err != nil {
		ca.mutex.Unlock()
		ca.close()
		return err
	}

	ca.wait.Add(1)
	go func() {
		defer ca.wait.Done()
		runSync(ctx, interval, ca.catalog, ca.log.Named("sync"))
	}()

	ca.mutex.Unlock()
	ca.log.Info("Catalog agent started (root: '%s', sync interval: %s)", ca.cfg.Catalog.Root, interval)
	<-ctx.Done()

	ca.log.Info("Shutting down catalog agent...")
	timeout, err := time.ParseDuration(ca.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		ca.wait.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdown.Done():
		ca.log.Warn("Sync loop did not finish within %s", timeout)
	}

	if err := ca.sc.Cleanup(shutdown); err != nil {
		ca.close()
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	ca.close()
	return nil
}

func (ca *CatalogAgent) close() {
	if ca.store != nil {
		if err := ca.store.Close(); err != nil {
			ca.log.Warn("Unable to close catalog store: %v", err)
		}
	}
	if closer, ok := ca.log.(io.Closer); ok {
		_ = closer.Close()
	}
}
