package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"qr-auth-server/configs"
	"qr-auth-server/internal/auth"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// listUsersPageSize keeps the lookup-by-email scan bounded per request.
const listUsersPageSize = 100

// Client talks to the admin API of the external identity authority.
// One instance is built at startup and reused for every request; see Get.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

var (
	global    *Client
	globalErr error
	once      sync.Once
)

// Get returns the process-wide client handle, building it from the
// loaded configuration on first use.
func Get() (*Client, error) {
	once.Do(func() {
		global, globalErr = NewClient(configs.Configs.Identity)
		if globalErr == nil {
			configs.Logger.Info("Identity authority client initialized",
				zap.String("base_url", global.baseURL))
		}
	})
	return global, globalErr
}

// NewClient validates the configuration and builds a client. Missing
// settings fail immediately with configuration_missing, before any work.
func NewClient(cfg configs.IdentityConfig) (*Client, error) {
	if cfg.BaseURL == "" || cfg.ServiceKey == "" {
		return nil, auth.NewAuthError(auth.ErrConfigMissing, "identity authority base_url and service_key are required")
	}
	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

// Close releases idle connections. Called once at shutdown.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return auth.NewAuthErrorWithCause(auth.ErrExchangeFailed, "failed to encode request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return auth.NewAuthErrorWithCause(auth.ErrExchangeFailed, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return auth.NewAuthErrorWithCause(auth.ErrExchangeFailed, "identity authority unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return auth.NewAuthErrorWithCause(auth.ErrExchangeFailed, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return auth.NewAuthErrorWithCause(auth.ErrExchangeFailed, "failed to decode response", err)
		}
	}
	return nil
}

type usersPage struct {
	Users []User `json:"users"`
}

// ListUsers returns one page of identity records.
func (c *Client) ListUsers(ctx context.Context, page, perPage int) ([]User, error) {
	var out usersPage
	path := fmt.Sprintf("/admin/users?page=%d&per_page=%d", page, perPage)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// FindUserByEmail scans the user listing for an exact email match, the
// way the authority's admin API is consumed today. Returns
// user_not_found when no page contains the email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	for page := 1; ; page++ {
		users, err := c.ListUsers(ctx, page, listUsersPageSize)
		if err != nil {
			return nil, err
		}
		for i := range users {
			if users[i].Email == email {
				return &users[i], nil
			}
		}
		if len(users) < listUsersPageSize {
			return nil, auth.NewAuthError(auth.ErrUserNotFound, fmt.Sprintf("user %s not found", email))
		}
	}
}

// GetUser resolves an identity record by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type generateLinkRequest struct {
	Type       string `json:"type"`
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

type generateLinkResponse struct {
	ActionLink string `json:"action_link"`
	Properties struct {
		ActionLink string `json:"action_link"`
	} `json:"properties"`
}

// GenerateMagicLink requests a one-time magic-link login artifact for
// the given email, redirecting to redirectTo once consumed. The link
// location in the response differs across authority versions, so both
// shapes are accepted.
func (c *Client) GenerateMagicLink(ctx context.Context, email, redirectTo string) (string, error) {
	payload := generateLinkRequest{Type: "magiclink", Email: email, RedirectTo: redirectTo}
	var out generateLinkResponse
	if err := c.do(ctx, http.MethodPost, "/admin/generate_link", payload, &out); err != nil {
		return "", err
	}
	link := out.ActionLink
	if link == "" {
		link = out.Properties.ActionLink
	}
	if link == "" {
		return "", auth.NewAuthError(auth.ErrExchangeFailed, "identity authority returned no action link")
	}
	return link, nil
}

// CreateUser forwards a user-creation request to the authority.
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, "/admin/users", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUserPassword sets a new password for the given user.
func (c *Client) UpdateUserPassword(ctx context.Context, id, password string) error {
	payload := map[string]string{"password": password}
	return c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), payload, nil)
}

// DeleteUser removes the user from the authority.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
}
