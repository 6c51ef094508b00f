package models

import "time"

// API key permission tags.
const (
	APIKeyPermissionFull = "full"
)

// APIKey is a per-App credential. Only the SHA-256 hash of the secret is
// persisted; the plaintext secret is returned to the caller exactly once,
// at creation time. PublicID is the externally visible key identifier,
// separate from the secret's display Prefix: a stable handle a developer can quote when asking an operator to revoke a key
// without ever re-deriving the secret itself.
type APIKey struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	PublicID   string `gorm:"column:public_id;not null;uniqueIndex" json:"id"`
	AppID      uint   `gorm:"not null;index" json:"app_id"`
	KeyHash    string `gorm:"column:key_hash;not null;uniqueIndex" json:"-"`
	Prefix     string `gorm:"not null" json:"prefix"`
	Permission string `gorm:"not null;default:'full'" json:"permission"`

	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at"`

	App App `gorm:"foreignKey:AppID;constraint:OnDelete:CASCADE" json:"-"`
}

func (APIKey) TableName() string {
	return "api_keys"
}
