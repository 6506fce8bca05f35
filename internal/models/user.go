package models

import "time"

// User is an auth record: it signs in with email+password (or a linked
// OAuth2 identity) and owns the diary entities carrying a user_id field.
type User struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // Opaque record ID.

	Email    string `gorm:"type:text;not null;uniqueIndex" json:"email"` // Sign-in identity.
	Name     string `gorm:"type:text" json:"name"`                       // Display name.
	Verified bool   `gorm:"not null;default:false" json:"verified"`      // Email verification flag.

	PasswordHash string `gorm:"type:text;not null" json:"-"` // bcrypt hash, never serialized.
	TOTPSecret   string `gorm:"type:text" json:"-"`          // TOTP secret when MFA is enabled.

	CreatedAt time.Time `gorm:"not null" json:"created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null" json:"updated"` // Last update timestamp.
}
