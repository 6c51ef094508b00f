package models

import "time"

// Product kinds.
const (
	ProductKindSubscription = "subscription"
	ProductKindConsumable   = "consumable"
	ProductKindNonConsumable = "non_consumable"
)

// Product is a purchasable item mapped to a store product. Display metadata
// (name, description, price, periods) is populated either by hand or by the
// Apple catalog sync; it is optional because a Product can be
// created before its metadata is synced.
type Product struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	AppID          uint   `gorm:"not null;uniqueIndex:idx_product_app_store_id" json:"app_id"`
	StoreProductID string `gorm:"column:store_product_id;not null;uniqueIndex:idx_product_app_store_id" json:"store_product_id"`
	ProductType    string `gorm:"not null" json:"product_type"`

	DisplayName         *string    `json:"display_name"`
	Description         *string    `json:"description"`
	PriceMicros         *int64     `json:"price_micros"`
	Currency            *string    `json:"currency"`
	SubscriptionPeriod  *string    `json:"subscription_period"` // ISO-8601 duration, e.g. "P1M"
	TrialPeriod         *string    `json:"trial_period"`        // ISO-8601 duration, e.g. "P2W"
	LastSyncedAt        *time.Time `json:"last_synced_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	App          App                   `gorm:"foreignKey:AppID;constraint:OnDelete:CASCADE" json:"-"`
	Entitlements []ProductEntitlement  `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
