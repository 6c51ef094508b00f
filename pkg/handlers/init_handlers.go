package handlers

import (
	"opencat/pkg/config"
	"opencat/pkg/repositories"
	"opencat/pkg/services"
)

// InitializeHandlers initializes all the handlers
func InitializeHandlers(services *services.ServicesCollection, repos *repositories.RepositoriesCollection, cfg config.Environment) (*HandlersCollection, error) {
	return &HandlersCollection{
		App:          NewAppHandler(services.Catalog, services.APIKey),
		Subscriber:   NewSubscriberHandler(services.Subscriber),
		Webhook:      NewWebhookHandler(services.Webhook),
		Notification: NewNotificationHandler(services.Notification),
	}, nil
}

// HandlersCollection contains all the handlers
type HandlersCollection struct {
	App          *AppHandler
	Subscriber   *SubscriberHandler
	Webhook      *WebhookHandler
	Notification *NotificationHandler
}
