package models

import "time"

// SessionTechnique links a drilled technique to a session. The
// (session_id, technique_id) pair is de-duplicated at write time by the
// accessor, not by a storage constraint.
type SessionTechnique struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	SessionID   string  `gorm:"type:text;not null;index" json:"session_id"`     // Parent session.
	TechniqueID string  `gorm:"type:text;not null;index" json:"technique_id"`   // Linked technique.
	Notes       *string `gorm:"type:text" json:"notes"`                         // Optional free text.
	DrillCount  *int    `gorm:"type:integer;column:drill_count" json:"drill_count"` // Optional rep count.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
