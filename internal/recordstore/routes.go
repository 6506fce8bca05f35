package recordstore

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/jitsdiary/jitsdiary/internal/security"
)

// Handler exposes the record store over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the collection API. The users collection only
// accepts the dedicated auth endpoints; every other collection gets
// generic record CRUD.
func RegisterRoutes(r *gin.Engine, svc *Service) {
	if r == nil || svc == nil {
		return
	}
	h := NewHandler(svc)

	api := r.Group("/api/collections")
	api.Use(h.identify)

	users := api.Group("/users")
	users.POST("/records", h.SignUp)
	users.POST("/auth-with-password", h.AuthWithPassword)
	users.POST("/auth-refresh", h.AuthRefresh)
	users.POST("/auth-with-oauth2", h.AuthWithOAuth2)

	mfa := users.Group("/mfa/totp")
	mfa.Use(h.requireAuth)
	mfa.POST("/prepare", h.PrepareTOTP)
	mfa.POST("/confirm", h.ConfirmTOTP)
	mfa.POST("/disable", h.DisableTOTP)

	api.GET("/:collection/records", h.List)
	api.POST("/:collection/records", h.Create)
	api.GET("/:collection/records/:id", h.Get)
	api.PATCH("/:collection/records/:id", h.Update)
	api.DELETE("/:collection/records/:id", h.Delete)
}

// identify parses an optional bearer token and stores the user id in the
// request context. Missing or invalid tokens leave the request anonymous;
// each route decides whether auth is required.
func (h *Handler) identify(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.Next()
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" || token == authHeader {
		c.Next()
		return
	}
	claims, errParse := security.ParseToken(h.svc.tokenSecret, token)
	if errParse != nil {
		c.Next()
		return
	}
	c.Set("userID", claims.UserID)
	c.Next()
}

// requireAuth aborts anonymous requests.
func (h *Handler) requireAuth(c *gin.Context) {
	if callerID(c) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Next()
}

func callerID(c *gin.Context) string {
	return c.GetString("userID")
}

// writeError maps store errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var storeErr *Error
	if errors.As(err, &storeErr) {
		c.JSON(storeErr.Status, gin.H{"error": storeErr.Message})
		return
	}
	log.WithError(err).Error("record store request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// guardRead rejects anonymous reads of non-public collections.
func (h *Handler) guardRead(c *gin.Context, collection string) bool {
	schema, ok := SchemaFor(collection)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return false
	}
	if schema.PublicRead || callerID(c) != "" {
		return true
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	return false
}

// List serves one page of a collection.
func (h *Handler) List(c *gin.Context) {
	collection := c.Param("collection")
	if !h.guardRead(c, collection) {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "30"))
	result, errList := h.svc.List(c.Request.Context(), collection, page, perPage, ListQuery{
		Filter: c.Query("filter"),
		Sort:   c.Query("sort"),
		Expand: c.Query("expand"),
	})
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get serves a single record.
func (h *Handler) Get(c *gin.Context) {
	collection := c.Param("collection")
	if !h.guardRead(c, collection) {
		return
	}
	record, errGet := h.svc.Get(c.Request.Context(), collection, c.Param("id"), c.Query("expand"))
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Create stores a new record.
func (h *Handler) Create(c *gin.Context) {
	if callerID(c) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var input Record
	if errBind := c.ShouldBindJSON(&input); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	record, errCreate := h.svc.Create(c.Request.Context(), c.Param("collection"), input)
	if errCreate != nil {
		writeError(c, errCreate)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Update patches an existing record.
func (h *Handler) Update(c *gin.Context) {
	if callerID(c) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var input Record
	if errBind := c.ShouldBindJSON(&input); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	record, errUpdate := h.svc.Update(c.Request.Context(), c.Param("collection"), c.Param("id"), input)
	if errUpdate != nil {
		writeError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Delete removes a record.
func (h *Handler) Delete(c *gin.Context) {
	if callerID(c) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if errDelete := h.svc.Delete(c.Request.Context(), c.Param("collection"), c.Param("id")); errDelete != nil {
		writeError(c, errDelete)
		return
	}
	c.Status(http.StatusNoContent)
}

// SignUp creates a user account. This is the only generic-looking write
// the users collection accepts.
func (h *Handler) SignUp(c *gin.Context) {
	var input Record
	if errBind := c.ShouldBindJSON(&input); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	record, errRegister := h.svc.RegisterUser(c.Request.Context(), input)
	if errRegister != nil {
		writeError(c, errRegister)
		return
	}
	c.JSON(http.StatusOK, record)
}

// authWithPasswordRequest is the auth-with-password body.
type authWithPasswordRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code"`
}

// AuthWithPassword signs a user in with email+password.
func (h *Handler) AuthWithPassword(c *gin.Context) {
	var body authWithPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	result, errAuth := h.svc.AuthWithPassword(c.Request.Context(), body.Identity, body.Password, body.OTPCode)
	if errAuth != nil {
		writeError(c, errAuth)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AuthRefresh exchanges a valid token for a fresh one.
func (h *Handler) AuthRefresh(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" || token == authHeader {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
		return
	}
	result, errRefresh := h.svc.AuthRefresh(c.Request.Context(), token)
	if errRefresh != nil {
		writeError(c, errRefresh)
		return
	}
	c.JSON(http.StatusOK, result)
}

// authWithOAuth2Request is the auth-with-oauth2 body. The caller has
// already completed the code exchange and userinfo fetch.
type authWithOAuth2Request struct {
	Provider   string          `json:"provider"`
	ProviderID string          `json:"provider_id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
}

// AuthWithOAuth2 signs a user in from a verified OAuth2 identity.
func (h *Handler) AuthWithOAuth2(c *gin.Context) {
	var body authWithOAuth2Request
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	result, errAuth := h.svc.AuthWithOAuth2(c.Request.Context(), OAuth2Identity{
		Provider:   body.Provider,
		ProviderID: body.ProviderID,
		Email:      body.Email,
		Name:       body.Name,
		Payload:    body.Payload,
	})
	if errAuth != nil {
		writeError(c, errAuth)
		return
	}
	c.JSON(http.StatusOK, result)
}

// totpCodeRequest is the confirm body.
type totpCodeRequest struct {
	Code string `json:"code"`
}

// PrepareTOTP generates a pending TOTP secret for the caller.
func (h *Handler) PrepareTOTP(c *gin.Context) {
	setup, errPrepare := h.svc.PrepareTOTP(c.Request.Context(), callerID(c))
	if errPrepare != nil {
		writeError(c, errPrepare)
		return
	}
	c.JSON(http.StatusOK, setup)
}

// ConfirmTOTP enables TOTP after a valid code.
func (h *Handler) ConfirmTOTP(c *gin.Context) {
	var body totpCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errConfirm := h.svc.ConfirmTOTP(c.Request.Context(), callerID(c), body.Code); errConfirm != nil {
		writeError(c, errConfirm)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP removes the caller's TOTP secret.
func (h *Handler) DisableTOTP(c *gin.Context) {
	if errDisable := h.svc.DisableTOTP(c.Request.Context(), callerID(c)); errDisable != nil {
		writeError(c, errDisable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
