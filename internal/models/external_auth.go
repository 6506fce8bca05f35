package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExternalAuth links a user to an OAuth2 identity at a provider.
type ExternalAuth struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	UserID     string `gorm:"type:text;not null;index" json:"user_id"`                          // Linked user.
	Provider   string `gorm:"type:text;not null;uniqueIndex:idx_provider_subject" json:"provider"`    // Provider name.
	ProviderID string `gorm:"type:text;not null;uniqueIndex:idx_provider_subject" json:"provider_id"` // Subject at the provider.

	Payload datatypes.JSON `gorm:"type:jsonb" json:"-"` // Raw userinfo payload from the provider.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
