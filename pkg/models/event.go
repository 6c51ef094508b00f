package models

import "time"

// Event kinds.
const (
	EventKindInitialPurchase     = "INITIAL_PURCHASE"
	EventKindRenewal             = "RENEWAL"
	EventKindCancellation        = "CANCELLATION"
	EventKindExpiration          = "EXPIRATION"
	EventKindRefund              = "REFUND"
	EventKindBillingIssueDetected = "BILLING_ISSUE_DETECTED"
	EventKindBillingIssueResolved = "BILLING_ISSUE_RESOLVED"
	EventKindProductChange       = "PRODUCT_CHANGE"
)

// ValidEventKind reports whether kind belongs to the closed vocabulary.
func ValidEventKind(kind string) bool {
	switch kind {
	case EventKindInitialPurchase, EventKindRenewal, EventKindCancellation,
		EventKindExpiration, EventKindRefund, EventKindBillingIssueDetected,
		EventKindBillingIssueResolved, EventKindProductChange:
		return true
	default:
		return false
	}
}

// Event is an immutable, append-only log entry: the source of truth for
// webhook delivery. Events are never updated or deleted. ID is the
// internal, monotonically increasing cursor GET /v1/events?since= polls
// against; UID is the externally visible event_id consumers key their
// idempotency off of. The two stay distinct so the cursor remains a
// plain ordered integer while the public identifier leaks no row counts.
type Event struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	UID          string `gorm:"column:uid;not null;uniqueIndex" json:"event_id"`
	SubscriberID uint   `gorm:"not null;index" json:"subscriber_id"`
	Kind         string `gorm:"not null" json:"kind"`

	// Payload is JSON: subscriber, product, transaction, store, timestamp.
	Payload string `gorm:"type:jsonb;not null" json:"payload"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Subscriber Subscriber `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Event) TableName() string {
	return "events"
}

// EventPayload is the JSON shape serialized into Event.Payload and into the
// webhook delivery body.
type EventPayload struct {
	EventID     string          `json:"event_id"`
	Type        string          `json:"type"`
	Subscriber  SubscriberView  `json:"subscriber"`
	Product     ProductView     `json:"product"`
	Transaction TransactionView `json:"transaction"`
	Store       string          `json:"store"`
	Timestamp   time.Time       `json:"timestamp"`
}

// SubscriberView, ProductView and TransactionView are the denormalized
// projections embedded in event/webhook payloads so consumers don't need a
// second lookup.
type SubscriberView struct {
	ID        uint   `json:"id"`
	AppUserID string `json:"app_user_id"`
}

type ProductView struct {
	ID             uint   `json:"id"`
	StoreProductID string `json:"store_product_id"`
	ProductType    string `json:"product_type"`
}

type TransactionView struct {
	ID                 uint       `json:"id"`
	StoreTransactionID string     `json:"store_transaction_id"`
	Status             string     `json:"status"`
	PurchasedAt        time.Time  `json:"purchased_at"`
	ExpiresAt          *time.Time `json:"expires_at"`
}
