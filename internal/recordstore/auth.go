package recordstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jitsdiary/jitsdiary/internal/models"
	"github.com/jitsdiary/jitsdiary/internal/security"
)

// totpIssuer is the issuer shown in authenticator apps.
const totpIssuer = "JitsDiary"

// AuthResult is the response of the auth endpoints: a signed token plus
// the authenticated user record.
type AuthResult struct {
	Token  string `json:"token"`
	Record Record `json:"record"`
}

func unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// secretEntry stores a pending TOTP secret with expiry.
type secretEntry struct {
	secret  string
	expires time.Time
}

// pendingSecretStore keeps TOTP secrets in memory between prepare and
// confirm.
type pendingSecretStore struct {
	mu    sync.Mutex
	items map[string]secretEntry
}

func newPendingSecretStore() *pendingSecretStore {
	return &pendingSecretStore{items: make(map[string]secretEntry)}
}

// Set stores a secret with a 10 minute expiry.
func (s *pendingSecretStore) Set(key, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = secretEntry{secret: secret, expires: time.Now().Add(10 * time.Minute)}
}

// Get returns a secret if present and not expired.
func (s *pendingSecretStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(s.items, key)
		return "", false
	}
	return entry.secret, true
}

// Delete removes a secret entry.
func (s *pendingSecretStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// RegisterUser creates a new user account from a sign-up payload.
func (s *Service) RegisterUser(ctx context.Context, input Record) (Record, error) {
	email := strings.ToLower(strings.TrimSpace(stringField(input, "email")))
	name := strings.TrimSpace(stringField(input, "name"))
	password := stringField(input, "password")
	passwordConfirm := stringField(input, "passwordConfirm")

	if !strings.Contains(email, "@") {
		return nil, badRequest("invalid email address")
	}
	if len(password) < 8 {
		return nil, badRequest("password must be at least 8 characters")
	}
	if passwordConfirm != "" && passwordConfirm != password {
		return nil, badRequest("passwords do not match")
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, fmt.Errorf("hash password: %w", errHash)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if errCreate := s.conn.WithContext(ctx).Create(&user).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			return nil, badRequest("email is already registered")
		}
		return nil, fmt.Errorf("create user: %w", errCreate)
	}
	return serializeRecord(&user)
}

// AuthWithPassword verifies email+password credentials and returns a
// token. Accounts with TOTP enabled must also supply a valid otp code.
// Failures are deliberately indistinct.
func (s *Service) AuthWithPassword(ctx context.Context, email, password, otpCode string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, unauthorized("invalid email or password")
	}

	var user models.User
	if errFind := s.conn.WithContext(ctx).Where("email = ?", email).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("find user: %w", errFind)
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		return nil, unauthorized("invalid email or password")
	}
	if strings.TrimSpace(user.TOTPSecret) != "" {
		if strings.TrimSpace(otpCode) == "" {
			return nil, unauthorized("otp code required")
		}
		if !totp.Validate(strings.TrimSpace(otpCode), user.TOTPSecret) {
			return nil, unauthorized("invalid otp code")
		}
	}
	return s.issueToken(&user)
}

// AuthRefresh validates a bearer token, reloads the user and returns a
// fresh token.
func (s *Service) AuthRefresh(ctx context.Context, token string) (*AuthResult, error) {
	claims, errParse := security.ParseToken(s.tokenSecret, token)
	if errParse != nil {
		return nil, unauthorized("invalid or expired token")
	}
	var user models.User
	if errFind := s.conn.WithContext(ctx).Where("id = ?", claims.UserID).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, unauthorized("invalid or expired token")
		}
		return nil, fmt.Errorf("find user: %w", errFind)
	}
	return s.issueToken(&user)
}

// OAuth2Identity carries the verified identity returned by a provider.
type OAuth2Identity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
	Payload    []byte
}

// AuthWithOAuth2 signs in (or signs up) a user from a verified OAuth2
// identity. An existing link wins; otherwise the identity is attached to
// the user with a matching email, creating the account when none exists.
func (s *Service) AuthWithOAuth2(ctx context.Context, identity OAuth2Identity) (*AuthResult, error) {
	if identity.Provider == "" || identity.ProviderID == "" {
		return nil, badRequest("missing provider identity")
	}

	var user models.User

	var link models.ExternalAuth
	errLink := s.conn.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", identity.Provider, identity.ProviderID).
		First(&link).Error
	switch {
	case errLink == nil:
		if errFind := s.conn.WithContext(ctx).Where("id = ?", link.UserID).First(&user).Error; errFind != nil {
			return nil, fmt.Errorf("find linked user: %w", errFind)
		}
	case errors.Is(errLink, gorm.ErrRecordNotFound):
		found, errResolve := s.resolveOAuth2User(ctx, identity, &user)
		if errResolve != nil {
			return nil, errResolve
		}
		if !found {
			return nil, unauthorized("oauth2 sign-in failed")
		}
		newLink := models.ExternalAuth{
			ID:         uuid.NewString(),
			UserID:     user.ID,
			Provider:   identity.Provider,
			ProviderID: identity.ProviderID,
			Payload:    datatypes.JSON(identity.Payload),
		}
		if errCreate := s.conn.WithContext(ctx).Create(&newLink).Error; errCreate != nil {
			return nil, fmt.Errorf("link oauth2 identity: %w", errCreate)
		}
	default:
		return nil, fmt.Errorf("find oauth2 link: %w", errLink)
	}

	return s.issueToken(&user)
}

// resolveOAuth2User finds the user matching the identity's email or
// creates a fresh account with an unusable random password.
func (s *Service) resolveOAuth2User(ctx context.Context, identity OAuth2Identity, user *models.User) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return false, nil
	}
	errFind := s.conn.WithContext(ctx).Where("email = ?", email).First(user).Error
	if errFind == nil {
		return true, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("find user by email: %w", errFind)
	}

	hash, errHash := security.HashPassword(uuid.NewString())
	if errHash != nil {
		return false, fmt.Errorf("hash password: %w", errHash)
	}
	*user = models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(identity.Name),
		Verified:     true,
		PasswordHash: hash,
	}
	if errCreate := s.conn.WithContext(ctx).Create(user).Error; errCreate != nil {
		return false, fmt.Errorf("create oauth2 user: %w", errCreate)
	}
	return true, nil
}

func (s *Service) issueToken(user *models.User) (*AuthResult, error) {
	token, errToken := security.GenerateToken(s.tokenSecret, user.ID, user.Email, user.Name, s.tokenExpiry)
	if errToken != nil {
		return nil, fmt.Errorf("generate token: %w", errToken)
	}
	record, errSerialize := serializeRecord(user)
	if errSerialize != nil {
		return nil, errSerialize
	}
	return &AuthResult{Token: token, Record: record}, nil
}

// TOTPSetup is the response of PrepareTOTP.
type TOTPSetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRImage    string `json:"qr_image"`
}

// PrepareTOTP generates a pending TOTP secret and QR code for the user.
func (s *Service) PrepareTOTP(ctx context.Context, userID string) (*TOTPSetup, error) {
	var user models.User
	if errFind := s.conn.WithContext(ctx).Where("id = ?", userID).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("find user: %w", errFind)
	}

	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if errGenerate != nil {
		return nil, fmt.Errorf("generate totp secret: %w", errGenerate)
	}

	s.pendingTOTP.Set(user.ID, key.Secret())

	qrImage := ""
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			qrImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	return &TOTPSetup{Secret: key.Secret(), OTPAuthURL: key.URL(), QRImage: qrImage}, nil
}

// ConfirmTOTP validates a code against the pending secret and enables
// TOTP for the user.
func (s *Service) ConfirmTOTP(ctx context.Context, userID, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return badRequest("missing code")
	}
	secret, ok := s.pendingTOTP.Get(userID)
	if !ok {
		return badRequest("totp setup expired")
	}
	if !totp.Validate(code, secret) {
		return unauthorized("invalid code")
	}

	res := s.conn.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("enable totp: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound()
	}
	s.pendingTOTP.Delete(userID)
	return nil
}

// DisableTOTP clears the user's TOTP secret.
func (s *Service) DisableTOTP(ctx context.Context, userID string) error {
	res := s.conn.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"totp_secret": "", "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("disable totp: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound()
	}
	s.pendingTOTP.Delete(userID)
	return nil
}

func stringField(input Record, key string) string {
	value, _ := input[key].(string)
	return value
}
