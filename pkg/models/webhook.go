package models

import (
	"strings"
	"time"
)

// Webhook delivery statuses.
const (
	DeliveryStatusPending    = "pending"
	DeliveryStatusDelivered  = "delivered"
	DeliveryStatusFailed     = "failed"
	DeliveryStatusDeadLetter = "dead_letter"
)

// WebhookEndpoint is a registered delivery target for an App's events.
type WebhookEndpoint struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	AppID  uint   `gorm:"not null;index" json:"app_id"`
	URL    string `gorm:"not null" json:"url"`
	Secret string `gorm:"not null" json:"-"`
	Active bool   `gorm:"not null;default:true" json:"active"`

	// EventKinds is a comma-separated whitelist of event kinds this
	// endpoint receives; empty means every kind.
	EventKinds string `gorm:"column:event_kinds;not null;default:''" json:"event_kinds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	App App `gorm:"foreignKey:AppID;constraint:OnDelete:CASCADE" json:"-"`
}

// ReceivesKind reports whether this endpoint subscribed to kind.
func (e *WebhookEndpoint) ReceivesKind(kind string) bool {
	if e.EventKinds == "" {
		return true
	}
	for _, k := range strings.Split(e.EventKinds, ",") {
		if k == kind {
			return true
		}
	}
	return false
}

func (WebhookEndpoint) TableName() string {
	return "webhook_endpoints"
}

// WebhookDelivery is a per-event, per-endpoint delivery attempt record.
// One row is inserted in status 'pending' for every active endpoint of an
// Event's owning App at the moment the Event is appended; endpoints added
// later do not receive past events.
type WebhookDelivery struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	EndpointID uint `gorm:"not null;index:idx_delivery_endpoint_event,priority:1" json:"endpoint_id"`
	EventID    uint `gorm:"not null;index:idx_delivery_endpoint_event,priority:2" json:"event_id"`

	Status        string     `gorm:"not null;default:'pending';index:idx_delivery_status_next_retry,priority:1" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	FirstAttemptAt *time.Time `json:"first_attempt_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	NextRetryAt   time.Time  `gorm:"not null;index:idx_delivery_status_next_retry,priority:2" json:"next_retry_at"`
	LastError     *string    `gorm:"type:text" json:"last_error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Endpoint WebhookEndpoint `gorm:"foreignKey:EndpointID;constraint:OnDelete:CASCADE" json:"-"`
	Event    Event           `gorm:"foreignKey:EventID" json:"-"`
}

func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
