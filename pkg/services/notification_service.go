package services

import (
	"context"
	"errors"
	"log/slog"

	"opencat/pkg/errs"
	"opencat/pkg/external/apple"
	"opencat/pkg/external/google"
	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"
	"opencat/pkg/repositories"

	"gorm.io/gorm"
)

// NotificationService routes store-initiated push notifications to the
// owning App's adapter and applies the transaction-state changes they
// describe.
type NotificationService struct {
	repos    *repositories.RepositoriesCollection
	factory  AdapterFactory
	webhooks *WebhookService
	db       *gorm.DB
}

func NewNotificationService(repos *repositories.RepositoriesCollection, factory AdapterFactory, webhooks *WebhookService, db *gorm.DB) *NotificationService {
	return &NotificationService{repos: repos, factory: factory, webhooks: webhooks, db: db}
}

func (s *NotificationService) ProcessAppleNotification(ctx context.Context, rawBody []byte) error {
	bundleID, err := apple.PeekBundleID(rawBody)
	if err != nil {
		return errs.NewBadRequestError("malformed apple notification: " + err.Error())
	}

	app, err := s.repos.App.GetByBundleID(ctx, models.PlatformIOS, bundleID)
	if err != nil {
		return errs.NewNotFoundError("no app registered for bundle id " + bundleID)
	}

	return s.process(ctx, app, rawBody)
}

func (s *NotificationService) ProcessGoogleNotification(ctx context.Context, rawBody []byte) error {
	packageName, err := google.PeekPackageName(rawBody)
	if err != nil {
		return errs.NewBadRequestError("malformed google notification: " + err.Error())
	}

	app, err := s.repos.App.GetByBundleID(ctx, models.PlatformAndroid, packageName)
	if err != nil {
		return errs.NewNotFoundError("no app registered for package name " + packageName)
	}

	return s.process(ctx, app, rawBody)
}

func (s *NotificationService) process(ctx context.Context, app *models.App, rawBody []byte) error {
	adapter, err := s.factory.For(ctx, app)
	if err != nil {
		return errs.NewBadRequestError(err.Error())
	}

	events, err := adapter.ProcessNotification(ctx, rawBody)
	if err != nil {
		return errs.NewUpstreamStoreError(err.Error())
	}
	if len(events) == 0 {
		// Unknown notification type, or a type this system does not track
		// (e.g. a one-time-product RTDN): logged and ignored, never a
		// handler failure.
		slog.Info("notification produced no trackable event", "app_id", app.ID)
		return nil
	}

	for _, te := range events {
		if err := s.applyTransactionEvent(ctx, app.ID, te); err != nil {
			slog.Error("failed to apply notification transaction event",
				"app_id", app.ID, "store", te.Transaction.Store,
				"store_transaction_id", te.Transaction.StoreTransactionID, "error", err)
		}
	}
	return nil
}

// applyTransactionEvent updates the already-known Transaction a
// notification refers to and appends the derived Event. A notification
// about a transaction this system has never recorded (no prior receipt
// submission) is skipped: there is no Subscriber/Product context to attach
// it to.
func (s *NotificationService) applyTransactionEvent(ctx context.Context, appID uint, te storeadapter.TransactionEvent) error {
	return repositories.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		existing, err := s.repos.Transaction.GetByStoreID(ctx, tx, te.Transaction.Store, te.Transaction.StoreTransactionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("notification for unknown transaction, skipping",
				"store", te.Transaction.Store, "store_transaction_id", te.Transaction.StoreTransactionID)
			return nil
		}
		if err != nil {
			return err
		}

		existing.Status = te.Transaction.Status
		existing.ExpiresAt = te.Transaction.ExpiresAt
		if err := s.repos.Transaction.Update(ctx, tx, existing); err != nil {
			return err
		}

		var subscriber models.Subscriber
		if err := tx.WithContext(ctx).First(&subscriber, existing.SubscriberID).Error; err != nil {
			return err
		}
		var product models.Product
		if err := tx.WithContext(ctx).First(&product, existing.ProductID).Error; err != nil {
			return err
		}

		_, err = s.webhooks.AppendEvent(ctx, tx, appID, existing.SubscriberID,
			te.Kind,
			models.SubscriberView{ID: subscriber.ID, AppUserID: subscriber.AppUserID},
			models.ProductView{ID: product.ID, StoreProductID: product.StoreProductID, ProductType: product.ProductType},
			models.TransactionView{
				ID:                 existing.ID,
				StoreTransactionID: existing.StoreTransactionID,
				Status:             existing.Status,
				PurchasedAt:        existing.PurchasedAt,
				ExpiresAt:          existing.ExpiresAt,
			},
			te.Transaction.Store,
		)
		return err
	})
}
