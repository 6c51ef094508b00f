package services

import (
	"context"
	"testing"

	"opencat/pkg/config"
	opencatdb "opencat/pkg/db"
	"opencat/pkg/external/apple"
	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"
	"opencat/pkg/repositories"
	"opencat/pkg/stores"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeAdapter is a canned storeadapter.API implementation so service tests
// never leave the process. Each field maps to one capability call.
type fakeAdapter struct {
	verifyResult *storeadapter.VerifiedTransaction
	verifyErr    error
	statusResult *storeadapter.VerifiedTransaction
	statusErr    error
	notifEvents  []storeadapter.TransactionEvent
	notifErr     error
}

func (f *fakeAdapter) Verify(ctx context.Context, rawReceipt, storeProductID string) (*storeadapter.VerifiedTransaction, error) {
	return f.verifyResult, f.verifyErr
}

func (f *fakeAdapter) GetStatus(ctx context.Context, storeTransactionID, storeProductID string) (*storeadapter.VerifiedTransaction, error) {
	return f.statusResult, f.statusErr
}

func (f *fakeAdapter) ProcessNotification(ctx context.Context, rawBody []byte) ([]storeadapter.TransactionEvent, error) {
	return f.notifEvents, f.notifErr
}

// ackRecordingAdapter adds the Google-only acknowledgement capability on
// top of fakeAdapter, recording every token it is asked to acknowledge.
type ackRecordingAdapter struct {
	fakeAdapter
	acked []string
}

func (a *ackRecordingAdapter) Acknowledge(ctx context.Context, storeTransactionID, storeProductID string) error {
	a.acked = append(a.acked, storeTransactionID)
	return nil
}

// fakeCatalogAdapter adds the Apple-only catalog sync capability.
type fakeCatalogAdapter struct {
	fakeAdapter
	synced  []apple.SyncedProduct
	syncErr error
}

func (f *fakeCatalogAdapter) SyncCatalog(ctx context.Context) ([]apple.SyncedProduct, error) {
	return f.synced, f.syncErr
}

// fakeFactory hands every app the same canned adapter.
type fakeFactory struct {
	adapter storeadapter.API
	err     error
}

func (f *fakeFactory) For(ctx context.Context, app *models.App) (storeadapter.API, error) {
	return f.adapter, f.err
}

type serviceTestEnv struct {
	db    *gorm.DB
	repos *repositories.RepositoriesCollection
	svc   *ServicesCollection
}

// newServiceTestEnv wires the full service stack against an isolated
// in-memory sqlite database migrated with the real migration pass, with
// adapter substituted for the per-App store adapter.
func newServiceTestEnv(t *testing.T, adapter storeadapter.API) *serviceTestEnv {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, opencatdb.RunMigrations(conn))

	repos, err := repositories.InitializeRepositories(conn)
	require.NoError(t, err)

	st := &stores.StoresCollection{
		APIKey:    stores.NewAPIKeyCache(nil, 0),
		Offerings: stores.NewOfferingsCache(nil, 0),
	}

	svc, err := InitializeServices(repos, &fakeFactory{adapter: adapter}, st, conn, config.Environment{})
	require.NoError(t, err)

	return &serviceTestEnv{db: conn, repos: repos, svc: svc}
}

// seedCatalog creates one app with a "pro" entitlement granted by a
// subscription product, the fixture most scenarios start from.
func seedCatalog(t *testing.T, env *serviceTestEnv, platform string) (*models.App, *models.Entitlement, *models.Product) {
	t.Helper()
	ctx := context.Background()

	app, err := env.svc.Catalog.CreateApp(ctx, "My App", platform, "com.example.myapp")
	require.NoError(t, err)

	entitlement, err := env.svc.Catalog.CreateEntitlement(ctx, app.ID, "pro", nil)
	require.NoError(t, err)

	product, err := env.svc.Catalog.CreateProduct(ctx, app.ID, "com.ex.monthly", models.ProductKindSubscription, []uint{entitlement.ID})
	require.NoError(t, err)

	return app, entitlement, product
}

func (env *serviceTestEnv) eventsBySubscriber(t *testing.T, subscriberID uint) []models.Event {
	t.Helper()
	var out []models.Event
	require.NoError(t, env.db.Where("subscriber_id = ?", subscriberID).Order("id ASC").Find(&out).Error)
	return out
}

func (env *serviceTestEnv) deliveries(t *testing.T) []models.WebhookDelivery {
	t.Helper()
	var out []models.WebhookDelivery
	require.NoError(t, env.db.Order("id ASC").Find(&out).Error)
	return out
}
