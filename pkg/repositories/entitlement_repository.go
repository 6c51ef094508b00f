package repositories

import (
	"context"
	"time"

	"opencat/pkg/models"

	"gorm.io/gorm"
)

type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) Create(ctx context.Context, e *models.Entitlement) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EntitlementRepository) GetByID(ctx context.Context, id uint) (*models.Entitlement, error) {
	var e models.Entitlement
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntitlementRepository) ListByApp(ctx context.Context, appID uint) ([]models.Entitlement, error) {
	var out []models.Entitlement
	err := r.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

func (r *EntitlementRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Entitlement{}, id).Error
}

// LinkProduct grants an Entitlement to a Product. Duplicate links are
// idempotent (ON CONFLICT DO NOTHING semantics via a plain insert guarded by
// the composite primary key).
func (r *EntitlementRepository) LinkProduct(ctx context.Context, tx *gorm.DB, productID, entitlementID uint) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	link := models.ProductEntitlement{ProductID: productID, EntitlementID: entitlementID}
	err := db.WithContext(ctx).
		Where(link).
		FirstOrCreate(&link).Error
	return err
}

func (r *EntitlementRepository) UnlinkProduct(ctx context.Context, productID, entitlementID uint) error {
	return r.db.WithContext(ctx).
		Where("product_id = ? AND entitlement_id = ?", productID, entitlementID).
		Delete(&models.ProductEntitlement{}).Error
}

// ActiveForSubscriber resolves the set of Entitlements currently granted to
// a subscriber: computed on demand from active transactions, never cached.
func (r *EntitlementRepository) ActiveForSubscriber(ctx context.Context, subscriberID uint, now time.Time) ([]models.Entitlement, error) {
	var out []models.Entitlement
	err := r.db.WithContext(ctx).
		Distinct("entitlements.*").
		Joins("JOIN product_entitlements pe ON pe.entitlement_id = entitlements.id").
		Joins("JOIN transactions t ON t.product_id = pe.product_id").
		Where("t.subscriber_id = ? AND t.status = ? AND (t.expires_at IS NULL OR t.expires_at > ?)",
			subscriberID, models.TransactionStatusActive, now).
		Find(&out).Error
	return out, err
}
