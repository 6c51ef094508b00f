package workers

import (
	"log/slog"
	"time"

	"opencat/pkg/config"
	"opencat/pkg/repositories"
	"opencat/pkg/services"
)

// WorkersCollection contains all background workers
type WorkersCollection struct {
	Webhook      *WebhookWorker
	CatalogSync  *CatalogSyncWorker
}

// InitializeWorkers initializes all background workers
func InitializeWorkers(
	cfg config.Environment,
	repos *repositories.RepositoriesCollection,
	servicesCollection *services.ServicesCollection,
) (*WorkersCollection, error) {
	webhookWorker := NewWebhookWorker(repos.Webhook, WebhookWorkerConfig{
		PollInterval: time.Duration(cfg.WebhookPollIntervalSeconds) * time.Second,
		BatchSize:    cfg.WebhookBatchSize,
	})

	catalogSyncWorker := NewCatalogSyncWorker(repos.App, servicesCollection.Catalog,
		time.Duration(cfg.CatalogSyncIntervalMinutes)*time.Minute)

	return &WorkersCollection{
		Webhook:     webhookWorker,
		CatalogSync: catalogSyncWorker,
	}, nil
}

// StartAll starts all background workers
func (w *WorkersCollection) StartAll() {
	slog.Info("Starting all workers...")
	if w.Webhook != nil {
		w.Webhook.Start()
	}
	if w.CatalogSync != nil {
		w.CatalogSync.Start()
	}
}

// StopAll stops all background workers
func (w *WorkersCollection) StopAll() {
	slog.Info("Stopping all workers...")
	if w.Webhook != nil {
		w.Webhook.Stop()
	}
	if w.CatalogSync != nil {
		w.CatalogSync.Stop()
	}
}
