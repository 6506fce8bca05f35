package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/jitsdiary/jitsdiary/internal/config"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// OAuth2Flows drives the authorization-code-with-PKCE sign-in flow for
// the configured providers.
type OAuth2Flows struct {
	providers map[string]config.OAuth2Provider
	store     *storeclient.Client
	cookies   *Cookies
}

// NewOAuth2Flows constructs the OAuth2 flow handler.
func NewOAuth2Flows(providers map[string]config.OAuth2Provider, store *storeclient.Client, cookies *Cookies) *OAuth2Flows {
	return &OAuth2Flows{providers: providers, store: store, cookies: cookies}
}

// HasProvider reports whether a provider is configured.
func (f *OAuth2Flows) HasProvider(name string) bool {
	_, ok := f.providers[name]
	return ok
}

func (f *OAuth2Flows) oauthConfig(c *gin.Context, name string) (*oauth2.Config, config.OAuth2Provider, bool) {
	provider, ok := f.providers[name]
	if !ok {
		return nil, provider, false
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	conf := &oauth2.Config{
		ClientID:     provider.ClientID,
		ClientSecret: provider.ClientSecret,
		Scopes:       provider.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  provider.AuthURL,
			TokenURL: provider.TokenURL,
		},
		// All providers land on the shared callback; the provider name is
		// recovered from the flow cookie there.
		RedirectURL: fmt.Sprintf("%s://%s/api/auth/callback", scheme, c.Request.Host),
	}
	return conf, provider, true
}

// Begin starts the flow: it stashes the state and PKCE verifier in
// short-lived cookies and redirects to the provider's consent page.
func (f *OAuth2Flows) Begin(c *gin.Context, name string) error {
	conf, _, ok := f.oauthConfig(c, name)
	if !ok {
		return fmt.Errorf("unknown oauth2 provider %q", name)
	}

	state, errState := randomState()
	if errState != nil {
		return errState
	}
	verifier := oauth2.GenerateVerifier()

	f.cookies.SetOAuthFlow(c, name, state, verifier)
	c.Redirect(http.StatusFound, conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))
	return nil
}

// Callback completes the flow: it checks the state, exchanges the code,
// fetches userinfo and signs the user in at the store. On success the
// session cookie is set and the transient flow cookies are cleared.
func (f *OAuth2Flows) Callback(c *gin.Context, name string) error {
	conf, provider, ok := f.oauthConfig(c, name)
	if !ok {
		return fmt.Errorf("unknown oauth2 provider %q", name)
	}
	if readCookie(c.Request, oauthProviderCookie) != name {
		return fmt.Errorf("oauth2 flow provider mismatch")
	}
	state := readCookie(c.Request, oauthStateCookie)
	if state == "" || c.Query("state") != state {
		return fmt.Errorf("oauth2 state mismatch")
	}
	verifier := readCookie(c.Request, oauthVerifierCookie)
	if verifier == "" {
		return fmt.Errorf("oauth2 flow expired")
	}
	code := c.Query("code")
	if code == "" {
		return fmt.Errorf("oauth2 provider returned no code")
	}

	ctx := c.Request.Context()
	token, errExchange := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if errExchange != nil {
		return fmt.Errorf("oauth2 code exchange: %w", errExchange)
	}

	payload, errInfo := fetchUserinfo(conf, provider.UserinfoURL, token, c)
	if errInfo != nil {
		return errInfo
	}
	identity, errIdentity := identityFromUserinfo(name, payload)
	if errIdentity != nil {
		return errIdentity
	}

	result, errAuth := f.store.AuthWithOAuth2(ctx, identity)
	if errAuth != nil {
		return fmt.Errorf("oauth2 sign-in: %w", errAuth)
	}

	f.cookies.ClearOAuthFlow(c)
	f.cookies.SetSession(c, result.Token)
	return nil
}

func fetchUserinfo(conf *oauth2.Config, userinfoURL string, token *oauth2.Token, c *gin.Context) ([]byte, error) {
	client := conf.Client(c.Request.Context(), token)
	resp, errGet := client.Get(userinfoURL)
	if errGet != nil {
		return nil, fmt.Errorf("oauth2 userinfo: %w", errGet)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth2 userinfo: status %d", resp.StatusCode)
	}
	payload, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return nil, fmt.Errorf("oauth2 userinfo: %w", errRead)
	}
	return payload, nil
}

// identityFromUserinfo maps a provider userinfo document onto the
// store's identity shape. Providers disagree on the subject field name.
func identityFromUserinfo(provider string, payload []byte) (storeclient.OAuth2Identity, error) {
	var info map[string]any
	if errDecode := json.Unmarshal(payload, &info); errDecode != nil {
		return storeclient.OAuth2Identity{}, fmt.Errorf("oauth2 userinfo: %w", errDecode)
	}

	subject := stringValue(info["sub"])
	if subject == "" {
		subject = stringValue(info["id"])
	}
	if subject == "" {
		return storeclient.OAuth2Identity{}, fmt.Errorf("oauth2 userinfo: missing subject")
	}

	name := stringValue(info["name"])
	if name == "" {
		name = stringValue(info["login"])
	}

	return storeclient.OAuth2Identity{
		Provider:   provider,
		ProviderID: subject,
		Email:      stringValue(info["email"]),
		Name:       name,
		Payload:    json.RawMessage(payload),
	}, nil
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("generate oauth2 state: %w", errRead)
	}
	return hex.EncodeToString(buf), nil
}
