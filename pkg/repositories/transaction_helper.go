package repositories

import (
	"context"

	"gorm.io/gorm"
)

// WithTransaction runs fn inside a single GORM transaction, rolling back on
// any returned error. Used by SubscriberService.SubmitReceipt to insert the
// Transaction and its derived Event atomically.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
