package google

import (
	"context"
	"fmt"
	"time"

	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"

	"google.golang.org/api/androidpublisher/v3"
)

// Verify validates a subscription purchase token against the Developer
// API. storeProductID is the Google subscription id and is required:
// Purchases.Subscriptions.Get is keyed on (packageName, subscriptionId,
// token).
func (a *Adapter) Verify(ctx context.Context, purchaseToken, storeProductID string) (*storeadapter.VerifiedTransaction, error) {
	return a.GetStatus(ctx, purchaseToken, storeProductID)
}

// GetStatus re-fetches the current subscription state.
func (a *Adapter) GetStatus(ctx context.Context, purchaseToken, storeProductID string) (*storeadapter.VerifiedTransaction, error) {
	result, err := a.breaker.Execute(func() (any, error) {
		return a.client.Purchases.Subscriptions.Get(a.packageName, storeProductID, purchaseToken).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("google subscription lookup: %w", err)
	}
	sub := result.(*androidpublisher.SubscriptionPurchase)

	vt := &storeadapter.VerifiedTransaction{
		Store:              models.StoreGoogle,
		StoreTransactionID: purchaseToken,
		StoreProductID:     storeProductID,
		PurchasedAt:        time.UnixMilli(sub.StartTimeMillis),
		Status:             statusFor(sub),
	}
	if sub.ExpiryTimeMillis > 0 {
		exp := time.UnixMilli(sub.ExpiryTimeMillis)
		vt.ExpiresAt = &exp
	}
	return vt, nil
}

// statusFor normalizes Google's paymentState/cancelReason combination
// onto the normalized transaction-status vocabulary.
func statusFor(sub *androidpublisher.SubscriptionPurchase) string {
	if sub.PaymentState != nil {
		switch *sub.PaymentState {
		case 0:
			return models.TransactionStatusBillingRetry
		case 3:
			return models.TransactionStatusGracePeriod
		}
	}
	if sub.ExpiryTimeMillis > 0 && time.UnixMilli(sub.ExpiryTimeMillis).Before(time.Now()) {
		return models.TransactionStatusExpired
	}
	return models.TransactionStatusActive
}

// Acknowledge confirms receipt of a subscription purchase within Google's
// refund window.
func (a *Adapter) Acknowledge(ctx context.Context, purchaseToken, storeProductID string) error {
	req := &androidpublisher.SubscriptionPurchasesAcknowledgeRequest{DeveloperPayload: "acknowledged"}
	_, err := a.breaker.Execute(func() (any, error) {
		return nil, a.client.Purchases.Subscriptions.Acknowledge(a.packageName, storeProductID, purchaseToken, req).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("google subscription acknowledge: %w", err)
	}
	return nil
}
