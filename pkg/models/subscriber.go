package models

import "time"

// Subscriber is an end user identified by a developer-controlled opaque
// string. Authentication of the end user is entirely the developer's
// responsibility; OpenCat never sees a password or session token for them.
type Subscriber struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	AppID     uint   `gorm:"not null;uniqueIndex:idx_subscriber_app_user" json:"app_id"`
	AppUserID string `gorm:"column:app_user_id;not null;uniqueIndex:idx_subscriber_app_user" json:"app_user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	App App `gorm:"foreignKey:AppID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}
