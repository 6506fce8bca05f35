package models

import "time"

// Session is a single training session, owned exclusively by its creator.
type Session struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	UserID      string  `gorm:"type:text;not null;index" json:"user_id"`        // Owning user.
	Date        string  `gorm:"type:text;not null;index" json:"date"`           // Session datetime (ISO-8601).
	SessionType string  `gorm:"type:text;not null" json:"session_type"`         // gi/no_gi/open_mat.
	GymID       *string `gorm:"type:text;index" json:"gym_id"`                  // Optional gym reference.
	DurationMin *int    `gorm:"type:integer;column:duration_minutes" json:"duration_minutes"` // Optional length.
	Coach       *string `gorm:"type:text" json:"coach"`                         // Optional coach name.
	Notes       *string `gorm:"type:text" json:"notes"`                         // Optional free text.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
