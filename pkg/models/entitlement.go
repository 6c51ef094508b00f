package models

import "time"

// Entitlement is a named access grant scoped to an App, decoupled from any
// specific Product. A Product grants every Entitlement linked to it.
type Entitlement struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	AppID       uint    `gorm:"not null;uniqueIndex:idx_entitlement_app_name" json:"app_id"`
	Name        string  `gorm:"not null;uniqueIndex:idx_entitlement_app_name" json:"name"`
	Description *string `json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	App App `gorm:"foreignKey:AppID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Entitlement) TableName() string {
	return "entitlements"
}

// ProductEntitlement is the many-to-many link between Product and
// Entitlement: a Product grants every Entitlement linked to it.
type ProductEntitlement struct {
	ProductID     uint `gorm:"primaryKey" json:"product_id"`
	EntitlementID uint `gorm:"primaryKey" json:"entitlement_id"`

	Product     Product     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	Entitlement Entitlement `gorm:"foreignKey:EntitlementID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ProductEntitlement) TableName() string {
	return "product_entitlements"
}
