package models

import "time"

// Transaction statuses.
const (
	TransactionStatusActive       = "active"
	TransactionStatusExpired      = "expired"
	TransactionStatusRefunded     = "refunded"
	TransactionStatusGracePeriod  = "grace_period"
	TransactionStatusBillingRetry = "billing_retry"
)

// Store tags, closed set.
const (
	StoreApple  = "apple"
	StoreGoogle = "google"
)

// Transaction is one purchase or renewal event verified against a store.
// Later state changes from the store update this row in place rather than
// inserting a new one; (store, store_transaction_id) is globally unique.
type Transaction struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	SubscriberID      uint    `gorm:"not null;index" json:"subscriber_id"`
	ProductID         uint    `gorm:"not null;index" json:"product_id"`
	Store             string  `gorm:"not null;uniqueIndex:idx_transaction_store_id" json:"store"`
	StoreTransactionID string `gorm:"column:store_transaction_id;not null;uniqueIndex:idx_transaction_store_id" json:"store_transaction_id"`

	PurchasedAt time.Time  `json:"purchased_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Status      string     `gorm:"not null;index" json:"status"`

	// RawReceipt is the original receipt payload, persisted on insert for
	// audit. Never updated on subsequent state changes.
	RawReceipt *string `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Subscriber Subscriber `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE" json:"-"`
	Product    Product    `gorm:"foreignKey:ProductID" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// IsCurrentlyActive reports whether this transaction currently grants
// access: status is active and, if an expiration is set, it is in the
// future.
func (t *Transaction) IsCurrentlyActive(now time.Time) bool {
	if t.Status != TransactionStatusActive {
		return false
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
		return false
	}
	return true
}
