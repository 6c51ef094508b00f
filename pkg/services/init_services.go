package services

import (
	"context"

	"opencat/pkg/config"
	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"
	"opencat/pkg/repositories"
	"opencat/pkg/stores"

	"gorm.io/gorm"
)

// AdapterFactory builds the store adapter for an App, dispatching on its
// platform tag. Satisfied by *external.Factory; tests substitute a fake
// that returns a canned adapter.
type AdapterFactory interface {
	For(ctx context.Context, app *models.App) (storeadapter.API, error)
}

// InitializeServices wires every service from its repositories, the
// per-App store-adapter factory, and the optional cache layer.
func InitializeServices(
	repos *repositories.RepositoriesCollection,
	factory AdapterFactory,
	st *stores.StoresCollection,
	db *gorm.DB,
	cfg config.Environment,
) (*ServicesCollection, error) {
	webhooks := NewWebhookService(repos, db)

	return &ServicesCollection{
		Catalog:      NewCatalogService(repos, factory, st.Offerings, db),
		Subscriber:   NewSubscriberService(repos, factory, webhooks, db),
		Webhook:      webhooks,
		APIKey:       NewAPIKeyService(repos, st.APIKey),
		Notification: NewNotificationService(repos, factory, webhooks, db),
	}, nil
}

// ServicesCollection contains all the services.
type ServicesCollection struct {
	Catalog      *CatalogService
	Subscriber   *SubscriberService
	Webhook      *WebhookService
	APIKey       *APIKeyService
	Notification *NotificationService
}
