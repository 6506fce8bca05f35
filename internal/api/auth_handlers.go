package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// signUpRequest is the sign-up body.
type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignUp creates an account and signs it in, setting the session cookie.
func (h *Handlers) SignUp(c *gin.Context) {
	var body signUpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if _, errSignUp := h.resolver.SignUp(c.Request.Context(), body.Email, body.Password, body.Name); errSignUp != nil {
		respondError(c, errSignUp)
		return
	}
	identity, errSignIn := h.resolver.SignIn(c, body.Email, body.Password, "")
	if errSignIn != nil {
		respondError(c, errSignIn)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user_id": identity.UserID,
		"email":   identity.Email,
		"name":    identity.Name,
	})
}

// signInRequest is the sign-in body.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code"`
}

// SignIn validates credentials and sets the session cookie. Credential
// failures are never detailed.
func (h *Handlers) SignIn(c *gin.Context) {
	var body signInRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	identity, errSignIn := h.resolver.SignIn(c, body.Email, body.Password, body.OTPCode)
	if errSignIn != nil {
		if apiErr, ok := errSignIn.(*storeclient.APIError); ok && apiErr.Status == http.StatusUnauthorized {
			// Surface only the second-factor hint; wrong credentials stay generic.
			if strings.Contains(apiErr.Message, "otp") {
				c.JSON(http.StatusUnauthorized, gin.H{"error": apiErr.Message})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		respondError(c, errSignIn)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": identity.UserID,
		"email":   identity.Email,
		"name":    identity.Name,
	})
}

// SignOut clears the session cookie.
func (h *Handlers) SignOut(c *gin.Context) {
	h.resolver.SignOut(c)
	c.Status(http.StatusNoContent)
}

// Me returns the current user, or a null user id for anonymous callers.
func (h *Handlers) Me(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		c.JSON(http.StatusOK, gin.H{"user_id": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": identity.UserID,
		"email":   identity.Email,
		"name":    identity.Name,
	})
}

// OAuth2Begin starts the provider flow.
func (h *Handlers) OAuth2Begin(c *gin.Context) {
	provider := c.Param("provider")
	if !h.flows.HasProvider(provider) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	if errBegin := h.flows.Begin(c, provider); errBegin != nil {
		respondError(c, errBegin)
	}
}

// OAuth2Callback completes the provider flow. Success lands on the
// home page with the session cookie set; failures bounce to sign-in.
func (h *Handlers) OAuth2Callback(c *gin.Context) {
	provider := c.Query("provider")
	if provider == "" {
		provider = auth.OAuthProvider(c.Request)
	}
	if errCallback := h.flows.Callback(c, provider); errCallback != nil {
		log.WithError(errCallback).Warn("oauth2 callback failed")
		c.Redirect(http.StatusFound, "/sign-in?error=oauth2")
		return
	}
	c.Redirect(http.StatusFound, "/")
}
