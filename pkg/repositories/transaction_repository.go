package repositories

import (
	"context"

	"opencat/pkg/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) GetByStoreID(ctx context.Context, tx *gorm.DB, store, storeTransactionID string) (*models.Transaction, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var t models.Transaction
	err := db.WithContext(ctx).
		Where("store = ? AND store_transaction_id = ?", store, storeTransactionID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, t *models.Transaction) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepository) Update(ctx context.Context, tx *gorm.DB, t *models.Transaction) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Save(t).Error
}

// ExistsForSubscriberProduct reports whether the subscriber already has any
// transaction for this product, used to distinguish INITIAL_PURCHASE from
// RENEWAL on a newly inserted transaction.
func (r *TransactionRepository) ExistsForSubscriberProduct(ctx context.Context, tx *gorm.DB, subscriberID, productID uint) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("subscriber_id = ? AND product_id = ?", subscriberID, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *TransactionRepository) ListBySubscriber(ctx context.Context, subscriberID uint) ([]models.Transaction, error) {
	var out []models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("subscriber_id = ?", subscriberID).
		Order("purchased_at DESC").
		Find(&out).Error
	return out, err
}
