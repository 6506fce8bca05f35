package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cookie names used by the app.
const (
	// SessionCookie carries the store auth token.
	SessionCookie = "jd_auth"
	// oauthStateCookie holds the CSRF state during an OAuth2 flow.
	oauthStateCookie = "jd_oauth_state"
	// oauthVerifierCookie holds the PKCE verifier during an OAuth2 flow.
	oauthVerifierCookie = "jd_oauth_verifier"
	// oauthProviderCookie remembers which provider started the flow.
	oauthProviderCookie = "jd_oauth_provider"
)

const (
	sessionCookieMaxAge = 30 * 24 * 60 * 60 // 30 days.
	oauthCookieMaxAge   = 10 * 60           // 10 minutes.
)

// Cookies writes and clears the app's cookies with consistent attributes.
type Cookies struct {
	secure bool
}

// NewCookies constructs a cookie helper. Secure cookies are only sent
// over HTTPS, so secure should be true in production deployments.
func NewCookies(secure bool) *Cookies {
	return &Cookies{secure: secure}
}

func (k *Cookies) set(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   k.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSession stores the auth token in the session cookie.
func (k *Cookies) SetSession(c *gin.Context, token string) {
	k.set(c, SessionCookie, token, sessionCookieMaxAge)
}

// ClearSession removes the session cookie.
func (k *Cookies) ClearSession(c *gin.Context) {
	k.set(c, SessionCookie, "", -1)
}

// SessionToken reads the auth token from the request, if present.
func SessionToken(r *http.Request) string {
	cookie, errCookie := r.Cookie(SessionCookie)
	if errCookie != nil {
		return ""
	}
	return cookie.Value
}

// SetOAuthFlow stores the transient cookies for an in-flight OAuth2 flow.
func (k *Cookies) SetOAuthFlow(c *gin.Context, provider, state, verifier string) {
	k.set(c, oauthProviderCookie, provider, oauthCookieMaxAge)
	k.set(c, oauthStateCookie, state, oauthCookieMaxAge)
	k.set(c, oauthVerifierCookie, verifier, oauthCookieMaxAge)
}

// ClearOAuthFlow removes the transient OAuth2 cookies.
func (k *Cookies) ClearOAuthFlow(c *gin.Context) {
	k.set(c, oauthProviderCookie, "", -1)
	k.set(c, oauthStateCookie, "", -1)
	k.set(c, oauthVerifierCookie, "", -1)
}

// OAuthProvider returns the provider that started the in-flight OAuth2
// flow, if any.
func OAuthProvider(r *http.Request) string {
	return readCookie(r, oauthProviderCookie)
}

func readCookie(r *http.Request, name string) string {
	cookie, errCookie := r.Cookie(name)
	if errCookie != nil {
		return ""
	}
	return cookie.Value
}
