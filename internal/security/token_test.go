package security

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, errGenerate := GenerateToken("test-secret", "u123", "a@x.com", "Alice", time.Hour)
	if errGenerate != nil {
		t.Fatalf("generate token: %v", errGenerate)
	}

	claims, errParse := ParseToken("test-secret", token)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}
	if claims.UserID != "u123" {
		t.Fatalf("claims.UserID = %q, want %q", claims.UserID, "u123")
	}
	if claims.Email != "a@x.com" {
		t.Fatalf("claims.Email = %q, want %q", claims.Email, "a@x.com")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, errGenerate := GenerateToken("secret-a", "u123", "a@x.com", "", time.Hour)
	if errGenerate != nil {
		t.Fatalf("generate token: %v", errGenerate)
	}
	if _, errParse := ParseToken("secret-b", token); errParse == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	t.Parallel()

	token, errGenerate := GenerateToken("test-secret", "u123", "a@x.com", "", -time.Minute)
	if errGenerate != nil {
		t.Fatalf("generate token: %v", errGenerate)
	}
	if _, errParse := ParseToken("test-secret", token); errParse != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", errParse)
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	t.Parallel()

	hash, errHash := HashPassword("correct horse battery")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Fatalf("expected password to verify")
	}
	if CheckPassword(hash, "wrong password") {
		t.Fatalf("expected wrong password to fail")
	}
}
