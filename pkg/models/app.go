package models

import "time"

// Platform tags a registered App's billing platform.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// App is a registered mobile application that owns entitlements, products,
// subscribers, webhook endpoints, and API keys.
type App struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Platform string `gorm:"not null;uniqueIndex:idx_app_bundle_platform" json:"platform"`
	BundleID string `gorm:"column:bundle_id;not null;uniqueIndex:idx_app_bundle_platform" json:"bundle_id"`

	// Credentials is an opaque, store-specific JSON blob (Apple issuer/key/private
	// key, Google service-account JSON, ...). Private-key material is never
	// echoed back in a response body; see services.CatalogService.GetCredentials.
	Credentials *string `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (App) TableName() string {
	return "apps"
}
