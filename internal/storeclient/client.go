package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the record store API. The zero token makes anonymous
// requests; WithToken derives an authenticated copy.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New constructs a client for the given store base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithToken returns a copy of the client carrying a bearer token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// Token returns the client's bearer token, if any.
func (c *Client) Token() string { return c.token }

// APIError is a non-2xx response from the store.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("store: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// Record is a store record as returned over the wire.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string { return r.GetString("id") }

// GetString returns a string field, or "" when absent or null.
func (r Record) GetString(key string) string {
	value, _ := r[key].(string)
	return value
}

// GetFloat returns a numeric field, or 0 when absent or null.
func (r Record) GetFloat(key string) float64 {
	value, _ := r[key].(float64)
	return value
}

// GetInt returns a numeric field truncated to int.
func (r Record) GetInt(key string) int { return int(r.GetFloat(key)) }

// Has reports whether a field is present and non-null.
func (r Record) Has(key string) bool {
	value, ok := r[key]
	return ok && value != nil
}

// Expand returns an expanded relation record, if resolved.
func (r Record) Expand(field string) (Record, bool) {
	expand, ok := r["expand"].(map[string]any)
	if !ok {
		return nil, false
	}
	target, ok := expand[field].(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(target), true
}

// ListResult is the paginated list envelope.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int64    `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// ListOptions are the optional list parameters.
type ListOptions struct {
	Filter string
	Sort   string
	Expand string
}

// Collection scopes record operations to one collection.
type Collection struct {
	client *Client
	name   string
}

// Collection returns an accessor for the named collection.
func (c *Client) Collection(name string) *Collection {
	return &Collection{client: c, name: name}
}

// List fetches one page of records.
func (col *Collection) List(ctx context.Context, page, perPage int, opts ListOptions) (*ListResult, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.Expand != "" {
		query.Set("expand", opts.Expand)
	}

	var result ListResult
	path := fmt.Sprintf("/api/collections/%s/records", col.name)
	if errDo := col.client.do(ctx, http.MethodGet, path, query, nil, &result); errDo != nil {
		return nil, errDo
	}
	return &result, nil
}

// First returns the first record matching the options, or a 404 APIError.
func (col *Collection) First(ctx context.Context, opts ListOptions) (Record, error) {
	result, errList := col.List(ctx, 1, 1, opts)
	if errList != nil {
		return nil, errList
	}
	if len(result.Items) == 0 {
		return nil, &APIError{Status: http.StatusNotFound, Message: "record not found"}
	}
	return result.Items[0], nil
}

// FullList fetches every record matching the options, page by page.
func (col *Collection) FullList(ctx context.Context, opts ListOptions) ([]Record, error) {
	const pageSize = 200
	var all []Record
	for page := 1; ; page++ {
		result, errList := col.List(ctx, page, pageSize, opts)
		if errList != nil {
			return nil, errList
		}
		all = append(all, result.Items...)
		if len(result.Items) < pageSize || page >= result.TotalPages {
			return all, nil
		}
	}
}

// Get fetches one record by id.
func (col *Collection) Get(ctx context.Context, id string, expand string) (Record, error) {
	query := url.Values{}
	if expand != "" {
		query.Set("expand", expand)
	}
	var record Record
	path := fmt.Sprintf("/api/collections/%s/records/%s", col.name, url.PathEscape(id))
	if errDo := col.client.do(ctx, http.MethodGet, path, query, nil, &record); errDo != nil {
		return nil, errDo
	}
	return record, nil
}

// Create stores a new record.
func (col *Collection) Create(ctx context.Context, body map[string]any) (Record, error) {
	var record Record
	path := fmt.Sprintf("/api/collections/%s/records", col.name)
	if errDo := col.client.do(ctx, http.MethodPost, path, nil, body, &record); errDo != nil {
		return nil, errDo
	}
	return record, nil
}

// Update patches an existing record.
func (col *Collection) Update(ctx context.Context, id string, body map[string]any) (Record, error) {
	var record Record
	path := fmt.Sprintf("/api/collections/%s/records/%s", col.name, url.PathEscape(id))
	if errDo := col.client.do(ctx, http.MethodPatch, path, nil, body, &record); errDo != nil {
		return nil, errDo
	}
	return record, nil
}

// Delete removes a record.
func (col *Collection) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/collections/%s/records/%s", col.name, url.PathEscape(id))
	return col.client.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// AuthResult is a successful auth response: a token and the user record.
type AuthResult struct {
	Token  string `json:"token"`
	Record Record `json:"record"`
}

// SignUp creates a user account.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (Record, error) {
	var record Record
	body := map[string]any{
		"email":           email,
		"password":        password,
		"passwordConfirm": password,
		"name":            name,
	}
	if errDo := c.do(ctx, http.MethodPost, "/api/collections/users/records", nil, body, &record); errDo != nil {
		return nil, errDo
	}
	return record, nil
}

// AuthWithPassword signs in with email+password, plus an otp code for
// accounts with TOTP enabled.
func (c *Client) AuthWithPassword(ctx context.Context, identity, password, otpCode string) (*AuthResult, error) {
	var result AuthResult
	body := map[string]any{"identity": identity, "password": password}
	if otpCode != "" {
		body["otp_code"] = otpCode
	}
	if errDo := c.do(ctx, http.MethodPost, "/api/collections/users/auth-with-password", nil, body, &result); errDo != nil {
		return nil, errDo
	}
	return &result, nil
}

// AuthRefresh exchanges the given token for a fresh one.
func (c *Client) AuthRefresh(ctx context.Context, token string) (*AuthResult, error) {
	var result AuthResult
	authed := c.WithToken(token)
	if errDo := authed.do(ctx, http.MethodPost, "/api/collections/users/auth-refresh", nil, nil, &result); errDo != nil {
		return nil, errDo
	}
	return &result, nil
}

// OAuth2Identity is a verified identity from an OAuth2 provider.
type OAuth2Identity struct {
	Provider   string          `json:"provider"`
	ProviderID string          `json:"provider_id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// AuthWithOAuth2 signs in (or up) from a verified OAuth2 identity.
func (c *Client) AuthWithOAuth2(ctx context.Context, identity OAuth2Identity) (*AuthResult, error) {
	var result AuthResult
	if errDo := c.do(ctx, http.MethodPost, "/api/collections/users/auth-with-oauth2", nil, identity, &result); errDo != nil {
		return nil, errDo
	}
	return &result, nil
}

// TOTPSetup is the prepare response of the TOTP endpoints.
type TOTPSetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRImage    string `json:"qr_image"`
}

// PrepareTOTP starts TOTP enrollment for the authenticated user.
func (c *Client) PrepareTOTP(ctx context.Context) (*TOTPSetup, error) {
	var setup TOTPSetup
	if errDo := c.do(ctx, http.MethodPost, "/api/collections/users/mfa/totp/prepare", nil, nil, &setup); errDo != nil {
		return nil, errDo
	}
	return &setup, nil
}

// ConfirmTOTP enables TOTP with a code from the authenticator app.
func (c *Client) ConfirmTOTP(ctx context.Context, code string) error {
	body := map[string]any{"code": code}
	return c.do(ctx, http.MethodPost, "/api/collections/users/mfa/totp/confirm", nil, body, nil)
}

// DisableTOTP turns TOTP off for the authenticated user.
func (c *Client) DisableTOTP(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/collections/users/mfa/totp/disable", nil, nil, nil)
}

// do performs one request against the store and decodes the response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			return fmt.Errorf("store: encode request: %w", errMarshal)
		}
		reader = bytes.NewReader(raw)
	}

	req, errReq := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if errReq != nil {
		return fmt.Errorf("store: build request: %w", errReq)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("store: %s %s: %w", method, path, errDo)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(out); errDecode != nil {
		return fmt.Errorf("store: decode response: %w", errDecode)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload struct {
		Error string `json:"error"`
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(&payload); errDecode == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}
