package repositories

import "gorm.io/gorm"

type RepositoriesCollection struct {
	App         *AppRepository
	Entitlement *EntitlementRepository
	Product     *ProductRepository
	Subscriber  *SubscriberRepository
	Transaction *TransactionRepository
	Event       *EventRepository
	Webhook     *WebhookRepository
	APIKey      *APIKeyRepository
}

func InitializeRepositories(db *gorm.DB) (*RepositoriesCollection, error) {
	return &RepositoriesCollection{
		App:         NewAppRepository(db),
		Entitlement: NewEntitlementRepository(db),
		Product:     NewProductRepository(db),
		Subscriber:  NewSubscriberRepository(db),
		Transaction: NewTransactionRepository(db),
		Event:       NewEventRepository(db),
		Webhook:     NewWebhookRepository(db),
		APIKey:      NewAPIKeyRepository(db),
	}, nil
}
