// Package api maps the diary's HTTP surface onto the access layer.
package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/jitsdiary/jitsdiary/internal/access"
	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/ratelimit"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// Handlers carries the app's dependencies.
type Handlers struct {
	resolver *auth.Resolver
	flows    *auth.OAuth2Flows
	store    *storeclient.Client
	limiter  *ratelimit.FixedWindowLimiter
}

// NewHandlers constructs the handler set. limiter may be nil to disable
// auth rate limiting.
func NewHandlers(resolver *auth.Resolver, flows *auth.OAuth2Flows, store *storeclient.Client, limiter *ratelimit.FixedWindowLimiter) *Handlers {
	return &Handlers{resolver: resolver, flows: flows, store: store, limiter: limiter}
}

// RegisterRoutes registers the /api surface and the page-protection
// redirects.
func RegisterRoutes(r *gin.Engine, h *Handlers) {
	if r == nil || h == nil {
		return
	}

	api := r.Group("/api")
	api.Use(h.resolveIdentity)

	authGroup := api.Group("/auth")
	authGroup.POST("/sign-up", h.rateLimitAuth, h.SignUp)
	authGroup.POST("/sign-in", h.rateLimitAuth, h.SignIn)
	authGroup.POST("/sign-out", h.SignOut)
	authGroup.GET("/oauth2/:provider", h.OAuth2Begin)
	authGroup.GET("/callback", h.OAuth2Callback)

	api.GET("/me", h.Me)
	api.GET("/profile", h.GetProfile)
	api.PUT("/profile", h.SaveProfile)

	api.POST("/settings/totp/prepare", h.PrepareTOTP)
	api.POST("/settings/totp/confirm", h.ConfirmTOTP)
	api.POST("/settings/totp/disable", h.DisableTOTP)

	api.GET("/sessions", h.ListSessions)
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.PATCH("/sessions/:id", h.UpdateSession)
	api.GET("/sessions/:id/rounds", h.ListRounds)
	api.POST("/sessions/:id/rounds", h.CreateRound)
	api.GET("/sessions/:id/techniques", h.ListSessionTechniques)
	api.POST("/sessions/:id/techniques", h.LogTechniques)
	api.DELETE("/sessions/:id/techniques/:linkId", h.UnlinkTechnique)

	api.GET("/belt-progressions", h.ListProgressions)
	api.POST("/belt-progressions", h.CreateProgression)
	api.DELETE("/belt-progressions/:id", h.DeleteProgression)

	api.GET("/gyms", h.ListGyms)
	api.GET("/techniques", h.ListTechniques)

	r.NoRoute(h.pageGuard)
}

// resolveIdentity resolves the session cookie once per request. The
// identity may be nil; each handler decides what anonymous means.
func (h *Handlers) resolveIdentity(c *gin.Context) {
	if identity := h.resolver.Resolve(c); identity != nil {
		c.Set("identity", identity)
	}
	c.Next()
}

func identityFrom(c *gin.Context) *auth.Identity {
	value, ok := c.Get("identity")
	if !ok {
		return nil
	}
	identity, _ := value.(*auth.Identity)
	return identity
}

// rateLimitAuth throttles credential endpoints per client IP when a
// limiter is configured.
func (h *Handlers) rateLimitAuth(c *gin.Context) {
	if h.limiter == nil {
		c.Next()
		return
	}
	if !h.limiter.Allow(c.ClientIP()) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try again later"})
		return
	}
	c.Next()
}

// pageGuard redirects anonymous page navigations under /sessions and
// /profile to the sign-in page, preserving the destination.
func (h *Handlers) pageGuard(c *gin.Context) {
	path := c.Request.URL.Path
	protected := strings.HasPrefix(path, "/sessions") || strings.HasPrefix(path, "/profile")
	if c.Request.Method == http.MethodGet && protected && auth.SessionToken(c.Request) == "" {
		c.Redirect(http.StatusFound, "/sign-in?redirect="+url.QueryEscape(path))
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// respondError maps access and store errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, access.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, access.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		var apiErr *storeclient.APIError
		if errors.As(err, &apiErr) {
			c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
			return
		}
		log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
