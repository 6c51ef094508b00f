package repositories

import (
	"context"

	"opencat/pkg/models"

	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a Product, optionally inside tx so a caller can combine it
// with entitlement-link inserts in one transaction.
func (r *ProductRepository) Create(ctx context.Context, tx *gorm.DB, p *models.Product) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Preload("Entitlements.Entitlement").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) GetByStoreProductID(ctx context.Context, appID uint, storeProductID string) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND store_product_id = ?", appID, storeProductID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) ListByApp(ctx context.Context, appID uint) ([]models.Product, error) {
	var out []models.Product
	err := r.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, id).Error
}

// UpsertFromCatalog is used by the Apple catalog sync: the
// product row is keyed on (app_id, store_product_id) and display metadata
// is overwritten on every sync pass.
func (r *ProductRepository) UpsertFromCatalog(ctx context.Context, p *models.Product) error {
	var existing models.Product
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND store_product_id = ?", p.AppID, p.StoreProductID).
		First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(p).Error
	}
	if err != nil {
		return err
	}

	existing.ProductType = p.ProductType
	existing.DisplayName = p.DisplayName
	existing.Description = p.Description
	existing.PriceMicros = p.PriceMicros
	existing.Currency = p.Currency
	existing.SubscriptionPeriod = p.SubscriptionPeriod
	existing.TrialPeriod = p.TrialPeriod
	existing.LastSyncedAt = p.LastSyncedAt
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	*p = existing
	return nil
}
