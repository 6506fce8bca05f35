package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jitsdiary/jitsdiary/internal/auth"
)

// requireIdentity returns the caller's identity or writes a 401.
func requireIdentity(c *gin.Context) *auth.Identity {
	identity := identityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return identity
}

// PrepareTOTP starts authenticator enrollment and returns the secret
// plus a QR image to scan.
func (h *Handlers) PrepareTOTP(c *gin.Context) {
	identity := requireIdentity(c)
	if identity == nil {
		return
	}
	setup, errPrepare := identity.Client.PrepareTOTP(c.Request.Context())
	if errPrepare != nil {
		respondError(c, errPrepare)
		return
	}
	c.JSON(http.StatusOK, setup)
}

// totpConfirmRequest carries the first code from the authenticator app.
type totpConfirmRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP enables the second factor after verifying one code.
func (h *Handlers) ConfirmTOTP(c *gin.Context) {
	identity := requireIdentity(c)
	if identity == nil {
		return
	}
	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errConfirm := identity.Client.ConfirmTOTP(c.Request.Context(), body.Code); errConfirm != nil {
		respondError(c, errConfirm)
		return
	}
	c.Status(http.StatusNoContent)
}

// DisableTOTP turns the second factor off.
func (h *Handlers) DisableTOTP(c *gin.Context) {
	identity := requireIdentity(c)
	if identity == nil {
		return
	}
	if errDisable := identity.Client.DisableTOTP(c.Request.Context()); errDisable != nil {
		respondError(c, errDisable)
		return
	}
	c.Status(http.StatusNoContent)
}
