package services

import (
	"context"
	"fmt"
	"time"

	"opencat/pkg/errs"
	"opencat/pkg/external/apple"
	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"
	"opencat/pkg/repositories"
	"opencat/pkg/stores"

	"gorm.io/gorm"
)

// CatalogService covers app, entitlement, and product CRUD plus the merged
// offerings view and the Apple catalog sync trigger.
type CatalogService struct {
	repos     *repositories.RepositoriesCollection
	factory   AdapterFactory
	offerings *stores.OfferingsCache
	db        *gorm.DB
}

func NewCatalogService(repos *repositories.RepositoriesCollection, factory AdapterFactory, offerings *stores.OfferingsCache, db *gorm.DB) *CatalogService {
	return &CatalogService{repos: repos, factory: factory, offerings: offerings, db: db}
}

func (s *CatalogService) CreateApp(ctx context.Context, name, platform, bundleID string) (*models.App, error) {
	if platform != models.PlatformIOS && platform != models.PlatformAndroid {
		return nil, errs.NewBadRequestError(fmt.Sprintf("unknown platform %q", platform))
	}

	app := &models.App{Name: name, Platform: platform, BundleID: bundleID}
	if err := s.repos.App.Create(ctx, app); err != nil {
		return nil, errs.NewConflictError("an app with that bundle_id and platform already exists")
	}
	return app, nil
}

func (s *CatalogService) ListApps(ctx context.Context) ([]models.App, error) {
	return s.repos.App.List(ctx)
}

func (s *CatalogService) GetApp(ctx context.Context, id uint) (*models.App, error) {
	app, err := s.repos.App.GetByID(ctx, id)
	if err != nil {
		return nil, errs.NewNotFoundError("app not found")
	}
	return app, nil
}

// SetCredentials persists the opaque store-credentials blob for an app.
func (s *CatalogService) SetCredentials(ctx context.Context, appID uint, blob storeadapter.CredentialsBlob) error {
	if _, err := s.repos.App.GetByID(ctx, appID); err != nil {
		return errs.NewNotFoundError("app not found")
	}

	raw, err := blob.Marshal()
	if err != nil {
		return errs.NewBadRequestError("invalid credentials payload")
	}
	if err := s.repos.App.UpdateCredentials(ctx, appID, raw); err != nil {
		return errs.NewInternalError("failed to store credentials")
	}
	return nil
}

// GetCredentials returns the stored blob with private-key material masked.
func (s *CatalogService) GetCredentials(ctx context.Context, appID uint) (storeadapter.CredentialsBlob, error) {
	app, err := s.repos.App.GetByID(ctx, appID)
	if err != nil {
		return storeadapter.CredentialsBlob{}, errs.NewNotFoundError("app not found")
	}

	raw := ""
	if app.Credentials != nil {
		raw = *app.Credentials
	}
	blob, err := storeadapter.Parse(raw)
	if err != nil {
		return storeadapter.CredentialsBlob{}, errs.NewInternalError("stored credentials are corrupt")
	}
	return blob.Masked(), nil
}

func (s *CatalogService) CreateEntitlement(ctx context.Context, appID uint, name string, description *string) (*models.Entitlement, error) {
	if _, err := s.repos.App.GetByID(ctx, appID); err != nil {
		return nil, errs.NewNotFoundError("app not found")
	}

	e := &models.Entitlement{AppID: appID, Name: name, Description: description}
	if err := s.repos.Entitlement.Create(ctx, e); err != nil {
		return nil, errs.NewConflictError("an entitlement with that name already exists for this app")
	}
	return e, nil
}

func (s *CatalogService) ListEntitlements(ctx context.Context, appID uint) ([]models.Entitlement, error) {
	return s.repos.Entitlement.ListByApp(ctx, appID)
}

// CreateProduct inserts the Product and its entitlement links in one
// transaction; partial failure rolls both back.
func (s *CatalogService) CreateProduct(ctx context.Context, appID uint, storeProductID, productType string, entitlementIDs []uint) (*models.Product, error) {
	if _, err := s.repos.App.GetByID(ctx, appID); err != nil {
		return nil, errs.NewNotFoundError("app not found")
	}
	switch productType {
	case models.ProductKindSubscription, models.ProductKindConsumable, models.ProductKindNonConsumable:
	default:
		return nil, errs.NewBadRequestError(fmt.Sprintf("unknown product_type %q", productType))
	}

	product := &models.Product{AppID: appID, StoreProductID: storeProductID, ProductType: productType}

	err := repositories.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repos.Product.Create(ctx, tx, product); err != nil {
			return err
		}
		for _, entID := range entitlementIDs {
			if err := s.repos.Entitlement.LinkProduct(ctx, tx, product.ID, entID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errs.NewConflictError("unable to create product: " + err.Error())
	}

	s.offerings.Invalidate(appID)
	return product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, appID uint) ([]models.Product, error) {
	return s.repos.Product.ListByApp(ctx, appID)
}

// Offering is the merged product+entitlement projection clients use to
// render paywalls.
type Offering struct {
	StoreProductID     string   `json:"store_product_id"`
	ProductType        string   `json:"product_type"`
	DisplayName        *string  `json:"display_name"`
	Description        *string  `json:"description"`
	PriceMicros        *int64   `json:"price_micros"`
	Currency           *string  `json:"currency"`
	SubscriptionPeriod *string  `json:"subscription_period"`
	TrialPeriod        *string  `json:"trial_period"`
	Entitlements       []string `json:"entitlements"`
}

func (s *CatalogService) GetOfferings(ctx context.Context, appID uint) ([]Offering, error) {
	var cached []Offering
	if s.offerings.Get(appID, &cached) {
		return cached, nil
	}

	products, err := s.repos.Product.ListByApp(ctx, appID)
	if err != nil {
		return nil, errs.NewInternalError("failed to list products")
	}

	offerings := make([]Offering, 0, len(products))
	for _, p := range products {
		full, err := s.repos.Product.GetByID(ctx, p.ID)
		if err != nil {
			continue
		}
		names := make([]string, 0, len(full.Entitlements))
		for _, link := range full.Entitlements {
			names = append(names, link.Entitlement.Name)
		}
		offerings = append(offerings, Offering{
			StoreProductID:     full.StoreProductID,
			ProductType:        full.ProductType,
			DisplayName:        full.DisplayName,
			Description:        full.Description,
			PriceMicros:        full.PriceMicros,
			Currency:           full.Currency,
			SubscriptionPeriod: full.SubscriptionPeriod,
			TrialPeriod:        full.TrialPeriod,
			Entitlements:       names,
		})
	}

	s.offerings.Set(appID, offerings)
	return offerings, nil
}

// catalogSyncer is satisfied only by the Apple adapter; Google has no
// catalog endpoint in this system.
type catalogSyncer interface {
	SyncCatalog(ctx context.Context) ([]apple.SyncedProduct, error)
}

// SyncProducts triggers the Apple catalog sync for an app and upserts the
// normalized results.
func (s *CatalogService) SyncProducts(ctx context.Context, appID uint) (int, []uint, error) {
	app, err := s.repos.App.GetByID(ctx, appID)
	if err != nil {
		return 0, nil, errs.NewNotFoundError("app not found")
	}

	adapter, err := s.factory.For(ctx, app)
	if err != nil {
		return 0, nil, errs.NewBadRequestError(err.Error())
	}
	syncer, ok := adapter.(catalogSyncer)
	if !ok {
		return 0, nil, errs.NewBadRequestError("catalog sync is only supported for ios apps")
	}

	synced, err := syncer.SyncCatalog(ctx)
	if err != nil {
		return 0, nil, errs.NewUpstreamStoreError(err.Error())
	}

	now := time.Now().UTC()
	ids := make([]uint, 0, len(synced))
	for _, sp := range synced {
		product := &models.Product{
			AppID:              appID,
			StoreProductID:     sp.StoreProductID,
			ProductType:        sp.ProductType,
			DisplayName:        &sp.DisplayName,
			Description:        &sp.Description,
			PriceMicros:        &sp.PriceMicros,
			Currency:           &sp.Currency,
			SubscriptionPeriod: &sp.SubscriptionPeriod,
			TrialPeriod:        &sp.TrialPeriod,
			LastSyncedAt:       &now,
		}
		if err := s.repos.Product.UpsertFromCatalog(ctx, product); err != nil {
			// Rows already upserted this pass are live; drop the cached
			// projection even though the sweep stopped short.
			s.offerings.Invalidate(appID)
			return len(ids), ids, errs.NewInternalError("failed to store synced product")
		}
		ids = append(ids, product.ID)
	}

	s.offerings.Invalidate(appID)
	return len(ids), ids, nil
}
