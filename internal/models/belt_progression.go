package models

import "time"

// BeltProgression records a promotion. Stripes is nullable: a zero-stripe
// promotion is stored as NULL and rendered back as 0.
type BeltProgression struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	UserID     string  `gorm:"type:text;not null;index" json:"user_id"` // Owning user.
	Belt       string  `gorm:"type:text;not null" json:"belt"`          // white/blue/purple/brown/black.
	Stripes    *int    `gorm:"type:integer" json:"stripes"`             // 1-4, NULL for zero.
	PromotedOn string  `gorm:"type:text;not null" json:"promoted_on"`   // Promotion datetime (ISO-8601).
	GymID      *string `gorm:"type:text;index" json:"gym_id"`           // Optional gym reference.
	Notes      *string `gorm:"type:text" json:"notes"`                  // Optional free text.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
