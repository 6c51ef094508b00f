package repositories

import (
	"context"

	"opencat/pkg/models"

	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an immutable event row. Events are never updated or
// deleted once written.
func (r *EventRepository) Create(ctx context.Context, tx *gorm.DB, e *models.Event) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(e).Error
}

func (r *EventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var e models.Event
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) ListBySubscriber(ctx context.Context, subscriberID uint) ([]models.Event, error) {
	var out []models.Event
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListByAppSince backs the event polling alternative: the cursor is the last seen
// event id, ascending so the next call's since is the last element's id.
func (r *EventRepository) ListByAppSince(ctx context.Context, appID uint, sinceID uint, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.Event
	err := r.db.WithContext(ctx).
		Joins("JOIN subscribers s ON s.id = events.subscriber_id").
		Where("s.app_id = ? AND events.id > ?", appID, sinceID).
		Order("events.id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
