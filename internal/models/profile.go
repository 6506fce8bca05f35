package models

import "time"

// Profile holds a user's mat profile. At most one row per user; the
// unique index backs the accessor's get-or-create upsert.
type Profile struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	UserID      string  `gorm:"type:text;not null;uniqueIndex" json:"user_id"` // Owning user.
	Belt        *string `gorm:"type:text" json:"belt"`                         // white/blue/purple/brown/black.
	Stripes     *int    `gorm:"type:integer" json:"stripes"`                   // 0-4, nullable.
	GymID       *string `gorm:"type:text;index" json:"gym_id"`                 // Optional home gym.
	DisplayName *string `gorm:"type:text" json:"display_name"`                 // Optional display name.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
