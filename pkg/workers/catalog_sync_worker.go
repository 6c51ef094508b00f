package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"opencat/pkg/models"
	"opencat/pkg/repositories"
	"opencat/pkg/services"
)

// CatalogSyncWorker periodically refreshes every iOS app's product catalog
// from App Store Connect. Android has no catalog endpoint in
// this system, so only iOS apps are swept. A zero interval disables the
// sweep entirely and leaves sync manual-only via the sync-products route.
type CatalogSyncWorker struct {
	apps     *repositories.AppRepository
	catalog  *services.CatalogService
	interval time.Duration

	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewCatalogSyncWorker(apps *repositories.AppRepository, catalog *services.CatalogService, interval time.Duration) *CatalogSyncWorker {
	return &CatalogSyncWorker{
		apps:     apps,
		catalog:  catalog,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (w *CatalogSyncWorker) Start() {
	if w.interval <= 0 {
		return
	}
	w.startOnce.Do(func() {
		go w.loop()
		slog.Info("Catalog sync worker started", "interval", w.interval.String())
	})
}

func (w *CatalogSyncWorker) Stop() {
	if w.interval <= 0 {
		return
	}
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		slog.Info("Catalog sync worker stopped")
	})
}

func (w *CatalogSyncWorker) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runCycle()
		}
	}
}

func (w *CatalogSyncWorker) runCycle() {
	ctx := context.Background()

	apps, err := w.apps.List(ctx)
	if err != nil {
		slog.Error("Catalog sync worker failed to list apps", "error", err)
		return
	}

	for _, app := range apps {
		if app.Platform != models.PlatformIOS {
			continue
		}
		count, _, err := w.catalog.SyncProducts(ctx, app.ID)
		if err != nil {
			slog.Error("Catalog sync worker failed to sync app", "app_id", app.ID, "error", err)
			continue
		}
		slog.Info("Catalog sync worker synced app", "app_id", app.ID, "product_count", count)
	}
}
