package repositories

import (
	"context"
	"time"

	"opencat/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) CreateEndpoint(ctx context.Context, e *models.WebhookEndpoint) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *WebhookRepository) GetEndpoint(ctx context.Context, id uint) (*models.WebhookEndpoint, error) {
	var e models.WebhookEndpoint
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *WebhookRepository) ListEndpointsByApp(ctx context.Context, appID uint) ([]models.WebhookEndpoint, error) {
	var out []models.WebhookEndpoint
	err := r.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ActiveEndpointsByApp returns the endpoints a freshly-appended Event should
// fan out to: only endpoints active at the moment the event is created.
func (r *WebhookRepository) ActiveEndpointsByApp(ctx context.Context, tx *gorm.DB, appID uint) ([]models.WebhookEndpoint, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var out []models.WebhookEndpoint
	err := db.WithContext(ctx).
		Where("app_id = ? AND active = ?", appID, true).
		Find(&out).Error
	return out, err
}

func (r *WebhookRepository) UpdateEndpoint(ctx context.Context, e *models.WebhookEndpoint) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *WebhookRepository) DeleteEndpoint(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.WebhookEndpoint{}, id).Error
}

// CreateDelivery inserts a pending delivery row, typically one per active
// endpoint per event.
func (r *WebhookRepository) CreateDelivery(ctx context.Context, tx *gorm.DB, d *models.WebhookDelivery) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(d).Error
}

func (r *WebhookRepository) GetDelivery(ctx context.Context, id uint) (*models.WebhookDelivery, error) {
	var d models.WebhookDelivery
	if err := r.db.WithContext(ctx).Preload("Event").Preload("Endpoint").First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *WebhookRepository) ListDeliveriesByApp(ctx context.Context, appID uint) ([]models.WebhookDelivery, error) {
	var out []models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Joins("JOIN webhook_endpoints we ON we.id = webhook_deliveries.endpoint_id").
		Where("we.app_id = ?", appID).
		Order("webhook_deliveries.created_at DESC").
		Find(&out).Error
	return out, err
}

// ClaimDue atomically claims deliveries whose next_retry_at has passed,
// using SKIP LOCKED so multiple worker replicas never double-send the same
// delivery.
// SQLite has no FOR UPDATE/SKIP LOCKED clause at all (it serializes writers
// at the connection level instead), so the locking clause is only applied
// against dialects that support it; the dev/test sqlite driver falls back
// to a plain row scan within the same transaction.
func (r *WebhookRepository) ClaimDue(ctx context.Context, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}

	now := time.Now().UTC()
	deliveries := make([]models.WebhookDelivery, 0, limit)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := query.
			Preload("Event").
			Preload("Endpoint").
			Where("status IN ? AND next_retry_at <= ?", []string{models.DeliveryStatusPending, models.DeliveryStatusFailed}, now).
			Order("next_retry_at ASC, id ASC").
			Limit(limit).
			Find(&deliveries).Error; err != nil {
			return err
		}
		return nil
	})

	return deliveries, err
}

// MarkDelivered records the successful attempt too: a delivery's attempts
// counts every HTTP attempt made, including the one that succeeded.
func (r *WebhookRepository) MarkDelivered(ctx context.Context, id uint, attempts int, attemptedAt time.Time, firstAttemptAt *time.Time) error {
	updates := map[string]any{
		"status":          models.DeliveryStatusDelivered,
		"attempts":        attempts,
		"last_attempt_at": attemptedAt,
		"updated_at":      time.Now().UTC(),
	}
	if firstAttemptAt != nil {
		updates["first_attempt_at"] = *firstAttemptAt
	}
	return r.db.WithContext(ctx).
		Model(&models.WebhookDelivery{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkRetry records a failed attempt and schedules the next one per the
// fixed backoff schedule.
func (r *WebhookRepository) MarkRetry(ctx context.Context, id uint, attempts int, lastError string, attemptedAt, nextRetryAt time.Time, firstAttemptAt *time.Time) error {
	updates := map[string]any{
		"status":          models.DeliveryStatusFailed,
		"attempts":        attempts,
		"last_error":      lastError,
		"last_attempt_at": attemptedAt,
		"next_retry_at":   nextRetryAt,
		"updated_at":      time.Now().UTC(),
	}
	if firstAttemptAt != nil {
		updates["first_attempt_at"] = *firstAttemptAt
	}
	return r.db.WithContext(ctx).
		Model(&models.WebhookDelivery{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkDeadLetter stops retrying a delivery that has exceeded the 24-hour
// elapsed cutoff.
func (r *WebhookRepository) MarkDeadLetter(ctx context.Context, id uint, attempts int, lastError string, attemptedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookDelivery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          models.DeliveryStatusDeadLetter,
			"attempts":        attempts,
			"last_error":      lastError,
			"last_attempt_at": attemptedAt,
			"updated_at":      time.Now().UTC(),
		}).Error
}

// Redeliver resets a delivery to pending with an immediate retry time, used
// by the manual redeliver endpoint.
func (r *WebhookRepository) Redeliver(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookDelivery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        models.DeliveryStatusPending,
			"next_retry_at": time.Now().UTC(),
			"updated_at":    time.Now().UTC(),
		}).Error
}
