package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/role-portal/pkg/logger"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

// Error codes the client reacts to
const (
	CodeMissingToken    = "MISSING_TOKEN"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeAccountDisabled = "ACCOUNT_DISABLED"
)

// APIError is a non-2xx reply from the account service
type APIError struct {
	Status  int
	Code    string
	Message string
	Errors  []response.FieldError
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("account service: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("account service: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// refreshable reports whether a 401 means the access token alone is unusable
func refreshable(e *APIError) bool {
	if e.Status != http.StatusUnauthorized {
		return false
	}
	switch e.Code {
	case CodeTokenExpired, CodeInvalidToken, CodeMissingToken:
		return true
	}
	return false
}

// User is the public projection returned by the service
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	IsActive    bool   `json:"isActive"`
}

type authResult struct {
	Tokens
	User *User `json:"user"`
}

// RegisterInput is the registration payload
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// Client calls the account service on behalf of one session
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	log        *logger.Logger
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient     *http.Client
	log            *logger.Logger
	refreshTimeout time.Duration
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithLogger sets the logger used by the client and its session
func WithLogger(l *logger.Logger) Option {
	return func(o *clientOptions) { o.log = l }
}

// WithRefreshTimeoutOption bounds a refresh call
func WithRefreshTimeoutOption(d time.Duration) Option {
	return func(o *clientOptions) { o.refreshTimeout = d }
}

// New creates a Client for the service at baseURL
func New(baseURL string, opts ...Option) *Client {
	o := clientOptions{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: o.httpClient,
		log:        o.log,
	}
	c.session = NewSession(c.rotate, WithRefreshTimeout(o.refreshTimeout), WithSessionLogger(o.log))
	return c
}

// Session exposes the client's session
func (c *Client) Session() *Session {
	return c.session
}

// Login authenticates and stores the returned pair
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var res authResult
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", "", body, &res); err != nil {
		return nil, disabledOr(err)
	}
	c.session.Set(res.Tokens)
	return res.User, nil
}

// Register creates an account and stores the returned pair
func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	var res authResult
	if err := c.send(ctx, http.MethodPost, "/api/auth/register", "", in, &res); err != nil {
		return nil, err
	}
	c.session.Set(res.Tokens)
	return res.User, nil
}

// Logout waits for an in-flight refresh to settle, detaches the pair and
// revokes its refresh token on the server. The session is cleared even when
// the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	tokens, ok, err := c.session.Detach(ctx)
	if err != nil || !ok {
		return err
	}
	body := map[string]string{"refreshToken": tokens.RefreshToken}
	if err := c.send(ctx, http.MethodPost, "/api/auth/logout", tokens.AccessToken, body, nil); err != nil {
		c.log.Warn("server logout failed, local session already cleared", zap.Error(err))
		return err
	}
	return nil
}

// Profile returns the caller's profile
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.Do(ctx, http.MethodGet, "/api/users/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Do performs an authenticated call. When the access token is rejected as
// expired or invalid, the pair is refreshed once and the call retried once.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	tokens, ok := c.session.Tokens()
	if !ok {
		return ErrNotAuthenticated
	}

	err := c.send(ctx, method, path, tokens.AccessToken, body, out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Code == CodeAccountDisabled {
		c.session.Clear()
		return fmt.Errorf("%w: %s", ErrAccountDisabled, apiErr.Message)
	}
	if !refreshable(apiErr) {
		return err
	}

	fresh, rerr := c.session.Refresh(ctx, tokens.AccessToken)
	if rerr != nil {
		return rerr
	}

	err = c.send(ctx, method, path, fresh.AccessToken, body, out)
	if errors.As(err, &apiErr) && apiErr.Code == CodeAccountDisabled {
		c.session.Clear()
		return fmt.Errorf("%w: %s", ErrAccountDisabled, apiErr.Message)
	}
	return err
}

func (c *Client) rotate(ctx context.Context, refreshToken string) (Tokens, error) {
	var t Tokens
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.send(ctx, http.MethodPost, "/api/auth/refresh", "", body, &t); err != nil {
		return Tokens{}, disabledOr(err)
	}
	return t, nil
}

func disabledOr(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == CodeAccountDisabled {
		return fmt.Errorf("%w: %s", ErrAccountDisabled, apiErr.Message)
	}
	return err
}

// send performs one HTTP exchange and decodes the envelope's data into out
func (c *Client) send(ctx context.Context, method, path, accessToken string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: msg, Errors: env.Errors}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
