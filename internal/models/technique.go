package models

import "time"

// Technique is an entry in the shared technique library.
type Technique struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	Name     string `gorm:"type:text;not null" json:"name"`           // Technique name.
	Category string `gorm:"type:text;not null;index" json:"category"` // guard/mount/takedown/submission/escape/transition.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
