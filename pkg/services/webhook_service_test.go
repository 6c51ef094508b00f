package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"opencat/pkg/models"

	"github.com/stretchr/testify/require"
)

func TestListEventsCursorsForward(t *testing.T) {
	adapter := &fakeAdapter{verifyResult: activeVerified("txn-1", 30*24*time.Hour)}
	env := newServiceTestEnv(t, adapter)
	app, _, _ := seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	_, err := env.svc.Subscriber.SubmitReceipt(ctx, app.ID, "u42", models.StoreApple, "receipt-blob", "com.ex.monthly")
	require.NoError(t, err)
	adapter.verifyResult = activeVerified("txn-2", 60*24*time.Hour)
	_, err = env.svc.Subscriber.SubmitReceipt(ctx, app.ID, "u42", models.StoreApple, "receipt-blob-2", "com.ex.monthly")
	require.NoError(t, err)

	page, err := env.svc.Webhook.ListEvents(ctx, app.ID, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, models.EventKindInitialPurchase, page[0].Kind)

	next, err := env.svc.Webhook.ListEvents(ctx, app.ID, page[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.Equal(t, models.EventKindRenewal, next[0].Kind)

	done, err := env.svc.Webhook.ListEvents(ctx, app.ID, next[0].ID, 10)
	require.NoError(t, err)
	require.Empty(t, done)

	// The poll path is app-scoped: another app sees nothing.
	other, err := env.svc.Catalog.CreateApp(ctx, "Other App", models.PlatformIOS, "com.example.other")
	require.NoError(t, err)
	none, err := env.svc.Webhook.ListEvents(ctx, other.ID, 0, 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestEndpointEventFilterLimitsFanOut(t *testing.T) {
	adapter := &fakeAdapter{verifyResult: activeVerified("txn-1", 30*24*time.Hour)}
	env := newServiceTestEnv(t, adapter)
	app, _, _ := seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	all, err := env.svc.Webhook.RegisterEndpoint(ctx, app.ID, "https://all.example/hook", nil)
	require.NoError(t, err)
	purchasesOnly, err := env.svc.Webhook.RegisterEndpoint(ctx, app.ID, "https://purchases.example/hook",
		[]string{models.EventKindInitialPurchase})
	require.NoError(t, err)

	_, err = env.svc.Webhook.RegisterEndpoint(ctx, app.ID, "https://bad.example/hook", []string{"NOT_A_KIND"})
	requireAppErrStatus(t, err, http.StatusBadRequest)

	// INITIAL_PURCHASE reaches both endpoints; the following RENEWAL only
	// reaches the unfiltered one.
	_, err = env.svc.Subscriber.SubmitReceipt(ctx, app.ID, "u42", models.StoreApple, "receipt-blob", "com.ex.monthly")
	require.NoError(t, err)
	adapter.verifyResult = activeVerified("txn-2", 60*24*time.Hour)
	_, err = env.svc.Subscriber.SubmitReceipt(ctx, app.ID, "u42", models.StoreApple, "receipt-blob-2", "com.ex.monthly")
	require.NoError(t, err)

	deliveries := env.deliveries(t)
	require.Len(t, deliveries, 3)

	perEndpoint := map[uint]int{}
	for _, d := range deliveries {
		perEndpoint[d.EndpointID]++
	}
	require.Equal(t, 2, perEndpoint[all.ID])
	require.Equal(t, 1, perEndpoint[purchasesOnly.ID])
}

func TestRedeliverResetsDeliveryAndIsScoped(t *testing.T) {
	adapter := &fakeAdapter{verifyResult: activeVerified("txn-1", 30*24*time.Hour)}
	env := newServiceTestEnv(t, adapter)
	app, _, _ := seedCatalog(t, env, models.PlatformIOS)
	ctx := context.Background()

	_, err := env.svc.Webhook.RegisterEndpoint(ctx, app.ID, "https://one.example/hook", nil)
	require.NoError(t, err)
	_, err = env.svc.Subscriber.SubmitReceipt(ctx, app.ID, "u42", models.StoreApple, "receipt-blob", "com.ex.monthly")
	require.NoError(t, err)

	deliveries := env.deliveries(t)
	require.Len(t, deliveries, 1)

	// Simulate a dead-lettered delivery, then replay it.
	require.NoError(t, env.db.Model(&models.WebhookDelivery{}).
		Where("id = ?", deliveries[0].ID).
		Updates(map[string]any{"status": models.DeliveryStatusDeadLetter, "attempts": 6}).Error)

	other, err := env.svc.Catalog.CreateApp(ctx, "Other App", models.PlatformIOS, "com.example.other")
	require.NoError(t, err)
	err = env.svc.Webhook.Redeliver(ctx, other.ID, deliveries[0].ID)
	requireAppErrStatus(t, err, http.StatusNotFound)

	require.NoError(t, env.svc.Webhook.Redeliver(ctx, app.ID, deliveries[0].ID))

	var reloaded models.WebhookDelivery
	require.NoError(t, env.db.First(&reloaded, deliveries[0].ID).Error)
	require.Equal(t, models.DeliveryStatusPending, reloaded.Status)
	require.True(t, reloaded.NextRetryAt.Before(time.Now().UTC().Add(time.Second)))

	views, err := env.svc.Webhook.ListEndpoints(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Deliveries, 1)
}
