package models

import "time"

// Gym is shared reference data, visible to all authenticated users.
type Gym struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	Name     string  `gorm:"type:text;not null" json:"name"` // Gym name.
	Location *string `gorm:"type:text" json:"location"`      // Optional location.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
