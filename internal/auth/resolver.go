package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// Identity is a signed-in user resolved from the session cookie. Its
// Client carries the user's token for store calls.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Client *storeclient.Client
}

// Resolver turns session cookies into identities by refreshing the
// token against the store.
type Resolver struct {
	store   *storeclient.Client
	cookies *Cookies
}

// NewResolver constructs a Resolver.
func NewResolver(store *storeclient.Client, cookies *Cookies) *Resolver {
	return &Resolver{store: store, cookies: cookies}
}

// Resolve returns the request's identity, or nil for anonymous
// requests. A stale or invalid cookie is cleared; a valid one is
// re-set with the refreshed token. Resolve never fails the request.
func (r *Resolver) Resolve(c *gin.Context) *Identity {
	token := SessionToken(c.Request)
	if token == "" {
		return nil
	}

	result, errRefresh := r.store.AuthRefresh(c.Request.Context(), token)
	if errRefresh != nil {
		if _, isAPIErr := errRefresh.(*storeclient.APIError); isAPIErr {
			r.cookies.ClearSession(c)
		} else {
			log.WithError(errRefresh).Warn("auth refresh failed")
		}
		return nil
	}

	r.cookies.SetSession(c, result.Token)
	return &Identity{
		UserID: result.Record.ID(),
		Email:  result.Record.GetString("email"),
		Name:   result.Record.GetString("name"),
		Client: r.store.WithToken(result.Token),
	}
}

// SignIn authenticates credentials against the store and sets the
// session cookie.
func (r *Resolver) SignIn(c *gin.Context, email, password, otpCode string) (*Identity, error) {
	result, errAuth := r.store.AuthWithPassword(c.Request.Context(), email, password, otpCode)
	if errAuth != nil {
		return nil, errAuth
	}
	r.cookies.SetSession(c, result.Token)
	return &Identity{
		UserID: result.Record.ID(),
		Email:  result.Record.GetString("email"),
		Name:   result.Record.GetString("name"),
		Client: r.store.WithToken(result.Token),
	}, nil
}

// SignUp registers a new account. The caller signs in afterwards.
func (r *Resolver) SignUp(ctx context.Context, email, password, name string) (storeclient.Record, error) {
	return r.store.SignUp(ctx, email, password, name)
}

// SignOut clears the session cookie.
func (r *Resolver) SignOut(c *gin.Context) {
	r.cookies.ClearSession(c)
}
