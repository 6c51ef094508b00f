package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"

	"github.com/stretchr/testify/require"
)

// appleNotificationBody builds a minimal App Store Server Notification
// envelope whose signedPayload is an unsigned three-segment JWS carrying
// just the bundle id, enough for the routing peek; the adapter itself is
// faked in these tests.
func appleNotificationBody(t *testing.T, bundleID string) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"notificationType": "DID_RENEW",
		"data":             map[string]any{"bundleId": bundleID},
	})
	require.NoError(t, err)

	jws := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"ES256"}`)) +
		"." + base64.RawURLEncoding.EncodeToString(payload) +
		"." + base64.RawURLEncoding.EncodeToString([]byte("sig"))

	body, err := json.Marshal(map[string]string{"signedPayload": jws})
	require.NoError(t, err)
	return body
}

func googleNotificationBody(t *testing.T, packageName, purchaseToken string) []byte {
	t.Helper()

	data, err := json.Marshal(map[string]any{
		"version":     "1.0",
		"packageName": packageName,
		"subscriptionNotification": map[string]any{
			"notificationType": 2,
			"purchaseToken":    purchaseToken,
			"subscriptionId":   "com.ex.monthly",
		},
	})
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"message": map[string]any{
			"data":      base64.StdEncoding.EncodeToString(data),
			"messageId": "msg-1",
		},
		"subscription": "projects/demo/subscriptions/rtdn",
	})
	require.NoError(t, err)
	return body
}

func TestAppleNotificationUpdatesTransaction(t *testing.T) {
	adapter := &fakeAdapter{verifyResult: activeVerified("txn-1", 30*24*time.Hour)}
	env := newServiceTestEnv(t, adapter)
	app, _, _ := seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	_, err := env.svc.Webhook.RegisterEndpoint(ctx, app.ID, "https://one.example/hook", nil)
	require.NoError(t, err)

	txn, err := env.svc.Subscriber.SubmitReceipt(ctx, app.ID, "u42", models.StoreApple, "receipt-blob", "com.ex.monthly")
	require.NoError(t, err)

	expired := *adapter.verifyResult
	expired.Status = models.TransactionStatusExpired
	adapter.notifEvents = []storeadapter.TransactionEvent{{
		Kind:        models.EventKindExpiration,
		Transaction: expired,
	}}

	require.NoError(t, env.svc.Notification.ProcessAppleNotification(ctx, appleNotificationBody(t, "com.example.myapp")))

	var reloaded models.Transaction
	require.NoError(t, env.db.First(&reloaded, txn.ID).Error)
	require.Equal(t, models.TransactionStatusExpired, reloaded.Status)

	events := env.eventsBySubscriber(t, txn.SubscriberID)
	require.Len(t, events, 2)
	require.Equal(t, models.EventKindExpiration, events[1].Kind)

	// The notification-derived event fans out like any other.
	deliveries := env.deliveries(t)
	require.Len(t, deliveries, 2)
}

func TestGoogleNotificationRoutesByPackageName(t *testing.T) {
	verified := activeVerified("purchase-token-1", 30*24*time.Hour)
	verified.Store = models.StoreGoogle
	adapter := &fakeAdapter{verifyResult: verified}
	env := newServiceTestEnv(t, adapter)
	app, _, _ := seedCatalog(t, env, models.PlatformAndroid)
	ctx := context.Background()

	txn, err := env.svc.Subscriber.SubmitReceipt(ctx, app.ID, "u42", models.StoreGoogle, "purchase-token-1", "com.ex.monthly")
	require.NoError(t, err)

	renewed := *verified
	later := time.Now().UTC().Add(60 * 24 * time.Hour)
	renewed.ExpiresAt = &later
	adapter.notifEvents = []storeadapter.TransactionEvent{{
		Kind:        models.EventKindRenewal,
		Transaction: renewed,
	}}

	require.NoError(t, env.svc.Notification.ProcessGoogleNotification(ctx, googleNotificationBody(t, "com.example.myapp", "purchase-token-1")))

	var reloaded models.Transaction
	require.NoError(t, env.db.First(&reloaded, txn.ID).Error)
	require.NotNil(t, reloaded.ExpiresAt)
	require.WithinDuration(t, later, *reloaded.ExpiresAt, time.Second)

	events := env.eventsBySubscriber(t, txn.SubscriberID)
	require.Len(t, events, 2)
	require.Equal(t, models.EventKindRenewal, events[1].Kind)
}

func TestNotificationForUnknownTransactionIsSkipped(t *testing.T) {
	adapter := &fakeAdapter{notifEvents: []storeadapter.TransactionEvent{{
		Kind:        models.EventKindExpiration,
		Transaction: *activeVerified("never-seen", time.Hour),
	}}}
	env := newServiceTestEnv(t, adapter)
	_, _, _ = seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	// No prior receipt submission: the handler must not fail, and nothing
	// is written.
	require.NoError(t, env.svc.Notification.ProcessAppleNotification(ctx, appleNotificationBody(t, "com.example.myapp")))

	var count int64
	require.NoError(t, env.db.Model(&models.Event{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestNotificationWithNoTrackableEventsSucceeds(t *testing.T) {
	env := newServiceTestEnv(t, &fakeAdapter{})
	_, _, _ = seedCatalog(t, env, models.PlatformIOS)

	require.NoError(t, env.svc.Notification.ProcessAppleNotification(context.Background(), appleNotificationBody(t, "com.example.myapp")))
}

func TestNotificationForUnknownBundleIDIsNotFound(t *testing.T) {
	env := newServiceTestEnv(t, &fakeAdapter{})

	err := env.svc.Notification.ProcessAppleNotification(context.Background(), appleNotificationBody(t, "com.example.unregistered"))
	requireAppErrStatus(t, err, http.StatusNotFound)
}
