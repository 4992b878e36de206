package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wisdom-oss/authorization-service/pkg/api"
)

// Error is a non-2xx answer of the server
type Error struct {
	Code        string
	Description string
	StatusCode  int
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("server error (%d): %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Code)
}

// IsInvalidToken reports whether err rejects the bearer token itself
func IsInvalidToken(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Authorization переносим только в пределах того же хоста
				if len(via) > 0 && via[0].URL.Host == req.URL.Host {
					if auth := via[0].Header.Get("Authorization"); auth != "" {
						req.Header.Set("Authorization", auth)
					}
				}
				return nil
			},
		},
	}
}

// BaseURL returns the server address the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PasswordGrant exchanges credentials for a token pair. An empty scope requests every granted scope
func (c *Client) PasswordGrant(ctx context.Context, username, password, scope string) (*api.TokenResponse, error) {
	form := url.Values{
		"grant_type": {api.GrantTypePassword},
		"username":   {username},
		"password":   {password},
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	return c.token(ctx, form)
}

// RefreshGrant exchanges a refresh token for a new pair
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	return c.token(ctx, url.Values{
		"grant_type":    {api.GrantTypeRefreshToken},
		"refresh_token": {refreshToken},
	})
}

func (c *Client) token(ctx context.Context, form url.Values) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doForm(ctx, "/oauth/token", "", form, &resp); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	return &resp, nil
}

// CheckToken introspects token, optionally against a space separated scope list
func (c *Client) CheckToken(ctx context.Context, bearer, token, scope string) (*api.IntrospectionResponse, error) {
	form := url.Values{"token": {token}}
	if scope != "" {
		form.Set("scope", scope)
	}

	var resp api.IntrospectionResponse
	if err := c.doForm(ctx, "/oauth/check_token", bearer, form, &resp); err != nil {
		return nil, fmt.Errorf("check token request failed: %w", err)
	}
	return &resp, nil
}

// Revoke deletes token on the server
func (c *Client) Revoke(ctx context.Context, bearer, token string) error {
	if err := c.doForm(ctx, "/oauth/revoke", bearer, url.Values{"token": {token}}, nil); err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	return nil
}

// Me returns the account owning bearer
func (c *Client) Me(ctx context.Context, bearer string) (*api.AccountResponse, error) {
	var resp api.AccountResponse
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", bearer, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangePassword changes the password of the account owning bearer
func (c *Client) ChangePassword(ctx context.Context, bearer string, req api.ChangePasswordRequest) error {
	return c.doJSON(ctx, http.MethodPatch, "/users/me", bearer, req, nil)
}

// ListUsers returns every account
func (c *Client) ListUsers(ctx context.Context, bearer string) ([]api.AccountResponse, error) {
	var resp []api.AccountResponse
	if err := c.doJSON(ctx, http.MethodGet, "/users", bearer, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetUser returns one account
func (c *Client) GetUser(ctx context.Context, bearer string, id int64) (*api.AccountResponse, error) {
	var resp api.AccountResponse
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), bearer, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateUser creates an account
func (c *Client) CreateUser(ctx context.Context, bearer string, req api.CreateAccountRequest) (*api.AccountResponse, error) {
	var resp api.AccountResponse
	if err := c.doJSON(ctx, http.MethodPost, "/users", bearer, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetUserActive enables or disables an account
func (c *Client) SetUserActive(ctx context.Context, bearer string, id int64, active bool) (*api.AccountResponse, error) {
	action := "disable"
	if active {
		action = "enable"
	}

	var resp api.AccountResponse
	if err := c.doJSON(ctx, http.MethodPost, "/users/"+strconv.FormatInt(id, 10)+"/"+action, bearer, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteUser deletes an account
func (c *Client) DeleteUser(ctx context.Context, bearer string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/users/"+strconv.FormatInt(id, 10), bearer, nil, nil)
}

// ListScopes returns every scope
func (c *Client) ListScopes(ctx context.Context, bearer string) ([]api.ScopeResponse, error) {
	var resp []api.ScopeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/scopes", bearer, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetScope returns a scope by id or value
func (c *Client) GetScope(ctx context.Context, bearer, ref string) (*api.ScopeResponse, error) {
	var resp api.ScopeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/scopes/"+url.PathEscape(ref), bearer, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateScope creates a scope
func (c *Client) CreateScope(ctx context.Context, bearer string, req api.ScopeRequest) (*api.ScopeResponse, error) {
	var resp api.ScopeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/scopes", bearer, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteScope deletes a scope by id or value
func (c *Client) DeleteScope(ctx context.Context, bearer, ref string) error {
	return c.doJSON(ctx, http.MethodDelete, "/scopes/"+url.PathEscape(ref), bearer, nil, nil)
}

// ListRoles returns every role
func (c *Client) ListRoles(ctx context.Context, bearer string) ([]api.RoleResponse, error) {
	var resp []api.RoleResponse
	if err := c.doJSON(ctx, http.MethodGet, "/roles", bearer, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetRole returns a role by id or name
func (c *Client) GetRole(ctx context.Context, bearer, ref string) (*api.RoleResponse, error) {
	var resp api.RoleResponse
	if err := c.doJSON(ctx, http.MethodGet, "/roles/"+url.PathEscape(ref), bearer, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRole creates a role
func (c *Client) CreateRole(ctx context.Context, bearer string, req api.RoleRequest) (*api.RoleResponse, error) {
	var resp api.RoleResponse
	if err := c.doJSON(ctx, http.MethodPost, "/roles", bearer, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteRole deletes a role by id or name
func (c *Client) DeleteRole(ctx context.Context, bearer, ref string) error {
	return c.doJSON(ctx, http.MethodDelete, "/roles/"+url.PathEscape(ref), bearer, nil, nil)
}

func (c *Client) doForm(ctx context.Context, path, bearer string, form url.Values, result any) error {
	return c.do(ctx, http.MethodPost, path, bearer, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), result)
}

func (c *Client) doJSON(ctx context.Context, method, path, bearer string, body, result any) error {
	if body == nil {
		return c.do(ctx, method, path, bearer, "", nil, result)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, method, path, bearer, "application/json", bytes.NewReader(data), result)
}

// do выполняет HTTP запрос и декодирует JSON ответ в result
func (c *Client) do(ctx context.Context, method, path, bearer, contentType string, body io.Reader, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			apiErr.Code = errResp.Error
			apiErr.Description = errResp.Description
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
