package repositories

import (
	"context"

	"opencat/pkg/models"

	"gorm.io/gorm"
)

type SubscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// GetOrCreate resolves a Subscriber by its developer-controlled opaque
// app_user_id, creating one on first sight.
func (r *SubscriberRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, appID uint, appUserID string) (*models.Subscriber, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	db = db.WithContext(ctx)

	var sub models.Subscriber
	err := db.Where("app_id = ? AND app_user_id = ?", appID, appUserID).First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	sub = models.Subscriber{AppID: appID, AppUserID: appUserID}
	if err := db.Create(&sub).Error; err != nil {
		// Lost a race against a concurrent first-sight insert; re-read.
		if readErr := db.Where("app_id = ? AND app_user_id = ?", appID, appUserID).First(&sub).Error; readErr == nil {
			return &sub, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriberRepository) GetByID(ctx context.Context, id uint) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := r.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriberRepository) GetByAppUserID(ctx context.Context, appID uint, appUserID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND app_user_id = ?", appID, appUserID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
