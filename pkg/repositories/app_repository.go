package repositories

import (
	"context"

	"opencat/pkg/models"

	"gorm.io/gorm"
)

type AppRepository struct {
	db *gorm.DB
}

func NewAppRepository(db *gorm.DB) *AppRepository {
	return &AppRepository{db: db}
}

func (r *AppRepository) Create(ctx context.Context, app *models.App) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *AppRepository) GetByID(ctx context.Context, id uint) (*models.App, error) {
	var app models.App
	if err := r.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// GetByBundleID resolves the App a store notification belongs to, keyed on
// the (platform, bundle_id) uniqueness invariant.
func (r *AppRepository) GetByBundleID(ctx context.Context, platform, bundleID string) (*models.App, error) {
	var app models.App
	err := r.db.WithContext(ctx).
		Where("platform = ? AND bundle_id = ?", platform, bundleID).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *AppRepository) List(ctx context.Context) ([]models.App, error) {
	var apps []models.App
	err := r.db.WithContext(ctx).Order("id ASC").Find(&apps).Error
	return apps, err
}

func (r *AppRepository) Update(ctx context.Context, app *models.App) error {
	return r.db.WithContext(ctx).Save(app).Error
}

// UpdateCredentials stores the opaque store-credentials blob without
// touching the rest of the row.
func (r *AppRepository) UpdateCredentials(ctx context.Context, id uint, credentials string) error {
	return r.db.WithContext(ctx).
		Model(&models.App{}).
		Where("id = ?", id).
		Update("credentials", credentials).Error
}
