package models

import "time"

// RollingRound is one sparring round inside a session. Ownership is
// transitive through the parent session.
type RollingRound struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	SessionID     string  `gorm:"type:text;not null;index" json:"session_id"` // Parent session.
	PartnerName   *string `gorm:"type:text" json:"partner_name"`              // Sparring partner.
	PartnerBelt   *string `gorm:"type:text" json:"partner_belt"`              // Partner belt rank.
	PartnerStripe *int    `gorm:"type:integer" json:"partner_stripe"`         // Partner stripe count.
	Outcome       *string `gorm:"type:text" json:"outcome"`                   // won/lost/draw.
	DurationSec   *int    `gorm:"type:integer;column:duration_seconds" json:"duration_seconds"` // Round length.
	Notes         *string `gorm:"type:text" json:"notes"`                     // Optional free text.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
