package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"opencat/pkg/errs"
	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"
	"opencat/pkg/repositories"

	"gorm.io/gorm"
)

// SubscriberService covers receipt submission and entitlement resolution.
type SubscriberService struct {
	repos    *repositories.RepositoriesCollection
	factory  AdapterFactory
	webhooks *WebhookService
	db       *gorm.DB
}

func NewSubscriberService(repos *repositories.RepositoriesCollection, factory AdapterFactory, webhooks *WebhookService, db *gorm.DB) *SubscriberService {
	return &SubscriberService{repos: repos, factory: factory, webhooks: webhooks, db: db}
}

// SubmitReceipt runs the full verify-upsert-append-fanout pipeline, with
// the database writes inside one transaction.
func (s *SubscriberService) SubmitReceipt(ctx context.Context, appID uint, appUserID, store, receiptData, productID string) (*models.Transaction, error) {
	app, err := s.repos.App.GetByID(ctx, appID)
	if err != nil {
		return nil, errs.NewNotFoundError("app not found")
	}

	product, err := s.repos.Product.GetByStoreProductID(ctx, appID, productID)
	if err != nil {
		return nil, errs.NewBadRequestError("unknown product_id for this app")
	}

	adapter, err := s.factory.For(ctx, app)
	if err != nil {
		return nil, errs.NewBadRequestError(err.Error())
	}

	verified, err := adapter.Verify(ctx, receiptData, productID)
	if err != nil {
		return nil, errs.NewUpstreamStoreError(err.Error())
	}
	if verified.Store != store {
		// The client-declared store must agree with the app's configured
		// adapter; a mismatch means the receipt was submitted to the wrong
		// app.
		return nil, errs.NewBadRequestError("store does not match the verified transaction")
	}

	s.acknowledge(ctx, adapter, verified)

	var txn *models.Transaction
	var subscriber *models.Subscriber

	err = repositories.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		subscriber, err = s.repos.Subscriber.GetOrCreate(ctx, tx, appID, appUserID)
		if err != nil {
			return err
		}

		existing, getErr := s.repos.Transaction.GetByStoreID(ctx, tx, verified.Store, verified.StoreTransactionID)

		var kind string
		switch {
		case errors.Is(getErr, gorm.ErrRecordNotFound):
			alreadyHasProduct, existsErr := s.repos.Transaction.ExistsForSubscriberProduct(ctx, tx, subscriber.ID, product.ID)
			if existsErr != nil {
				return existsErr
			}
			if alreadyHasProduct {
				kind = models.EventKindRenewal
			} else {
				kind = models.EventKindInitialPurchase
			}

			txn = &models.Transaction{
				SubscriberID:       subscriber.ID,
				ProductID:          product.ID,
				Store:              verified.Store,
				StoreTransactionID: verified.StoreTransactionID,
				PurchasedAt:        verified.PurchasedAt,
				ExpiresAt:          verified.ExpiresAt,
				Status:             verified.Status,
				RawReceipt:         &receiptData,
			}
			if err := s.repos.Transaction.Create(ctx, tx, txn); err != nil {
				return err
			}

		case getErr != nil:
			return getErr

		default:
			txn = existing
			prevStatus := txn.Status
			txn.Status = verified.Status
			txn.ExpiresAt = verified.ExpiresAt
			if err := s.repos.Transaction.Update(ctx, tx, txn); err != nil {
				return err
			}
			kind = transitionEventKind(prevStatus, verified.Status)
		}

		if kind == "" {
			return nil
		}

		_, err := s.webhooks.AppendEvent(ctx, tx, appID, subscriber.ID,
			kind,
			models.SubscriberView{ID: subscriber.ID, AppUserID: subscriber.AppUserID},
			models.ProductView{ID: product.ID, StoreProductID: product.StoreProductID, ProductType: product.ProductType},
			models.TransactionView{
				ID:                 txn.ID,
				StoreTransactionID: txn.StoreTransactionID,
				Status:             txn.Status,
				PurchasedAt:        txn.PurchasedAt,
				ExpiresAt:          txn.ExpiresAt,
			},
			verified.Store,
		)
		return err
	})
	if err != nil {
		return nil, errs.NewInternalError("failed to record transaction: " + err.Error())
	}

	return txn, nil
}

// acknowledger is satisfied only by the Google adapter. Google requires
// every subscription purchase to be acknowledged within its refund
// window; Apple transactions carry no separate acknowledgement step, so
// adapters that don't implement this are left alone.
type acknowledger interface {
	Acknowledge(ctx context.Context, storeTransactionID, storeProductID string) error
}

// acknowledge calls the adapter's acknowledgement step when it has one.
// Failure is logged, not surfaced to the caller: the purchase is already
// verified and recorded, and Google retries the notification independently
// of whether this call succeeds.
func (s *SubscriberService) acknowledge(ctx context.Context, adapter storeadapter.API, verified *storeadapter.VerifiedTransaction) {
	ack, ok := adapter.(acknowledger)
	if !ok {
		return
	}
	if err := ack.Acknowledge(ctx, verified.StoreTransactionID, verified.StoreProductID); err != nil {
		slog.Warn("failed to acknowledge purchase", "store", verified.Store, "store_transaction_id", verified.StoreTransactionID, "error", err)
	}
}

// transitionEventKind derives an event kind from a status change on an
// already-recorded transaction. A transition with no dedicated
// event kind in the receipt-submission flow (e.g. grace_period) yields "":
// those signals arrive through store notifications instead.
func transitionEventKind(prev, next string) string {
	if prev == next {
		return ""
	}
	switch next {
	case models.TransactionStatusRefunded:
		return models.EventKindRefund
	case models.TransactionStatusExpired:
		return models.EventKindExpiration
	default:
		return ""
	}
}

// SubscriberDetail is the merged view GET /v1/subscribers/{app_user_id}
// returns.
type SubscriberDetail struct {
	Subscriber         models.Subscriber     `json:"subscriber"`
	ActiveEntitlements []models.Entitlement  `json:"active_entitlements"`
	Transactions       []models.Transaction  `json:"transactions"`
}

func (s *SubscriberService) GetSubscriber(ctx context.Context, appID uint, appUserID string) (*SubscriberDetail, error) {
	subscriber, err := s.repos.Subscriber.GetByAppUserID(ctx, appID, appUserID)
	if err != nil {
		// Scoped strictly to appID: a subscriber belonging to another app
		// never resolves here, so cross-app lookups 404 rather than 403.
		return nil, errs.NewNotFoundError("subscriber not found")
	}

	entitlements, err := s.repos.Entitlement.ActiveForSubscriber(ctx, subscriber.ID, time.Now().UTC())
	if err != nil {
		return nil, errs.NewInternalError("failed to resolve active entitlements")
	}

	transactions, err := s.repos.Transaction.ListBySubscriber(ctx, subscriber.ID)
	if err != nil {
		return nil, errs.NewInternalError("failed to list transactions")
	}

	return &SubscriberDetail{Subscriber: *subscriber, ActiveEntitlements: entitlements, Transactions: transactions}, nil
}

func (s *SubscriberService) ListTransactions(ctx context.Context, appID uint, appUserID string) ([]models.Transaction, error) {
	subscriber, err := s.repos.Subscriber.GetByAppUserID(ctx, appID, appUserID)
	if err != nil {
		return nil, errs.NewNotFoundError("subscriber not found")
	}
	return s.repos.Transaction.ListBySubscriber(ctx, subscriber.ID)
}
