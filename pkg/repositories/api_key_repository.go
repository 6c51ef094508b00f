package repositories

import (
	"context"
	"time"

	"opencat/pkg/models"

	"gorm.io/gorm"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, k *models.APIKey) error {
	return r.db.WithContext(ctx).Create(k).Error
}

// GetActiveByHash looks up a non-revoked key by its SHA-256 hash. Used on
// every authenticated request, so callers should sit it behind the
// short-TTL cache in stores.APIKeyCache.
func (r *APIKeyRepository) GetActiveByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var k models.APIKey
	err := r.db.WithContext(ctx).
		Where("key_hash = ? AND revoked_at IS NULL", hash).
		First(&k).Error
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *APIKeyRepository) ListByApp(ctx context.Context, appID uint) ([]models.APIKey, error) {
	var out []models.APIKey
	err := r.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// GetByPublicID resolves a key by its externally visible identifier,
// scoped to appID so one app's revoke request can never touch another
// app's key.
func (r *APIKeyRepository) GetByPublicID(ctx context.Context, appID uint, publicID string) (*models.APIKey, error) {
	var k models.APIKey
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND public_id = ?", appID, publicID).
		First(&k).Error
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *APIKeyRepository) Revoke(ctx context.Context, id uint, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("revoked_at", revokedAt).Error
}
