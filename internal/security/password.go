package security

import "golang.org/x/crypto/bcrypt"

// passwordHashCost is the bcrypt work factor for stored credentials.
const passwordHashCost = 12

// HashPassword derives the bcrypt hash stored on a user record.
func HashPassword(password string) (string, error) {
	hash, errHash := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if errHash != nil {
		return "", errHash
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
// Malformed hashes count as a mismatch.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
