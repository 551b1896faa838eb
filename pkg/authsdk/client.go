package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client is a client for the Gatehouse authentication service. The session
// is carried in an HTTP-only cookie, so the client keeps a cookie jar and
// all calls after a successful login ride on it.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Gatehouse client with its own cookie jar.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doJSON performs a request with an optional JSON body and decodes the
// response into target when it is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, target any, expectedStatus int) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if target != nil {
		if err := json.Unmarshal(bodyBytes, target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// parseErrorResponse converts a non-success response into an *AuthError so
// callers can match on the error code.
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &AuthError{
			StatusCode:  statusCode,
			Code:        ErrorCodeServerError,
			Description: fmt.Sprintf("unexpected response (HTTP %d)", statusCode),
		}
	}
	return &AuthError{
		StatusCode:  statusCode,
		Code:        errResp.Error,
		Description: errResp.ErrorDescription,
	}
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/register", req, &resp, http.StatusCreated); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login starts an authentication attempt. On full success the session
// cookie lands in the jar; when the account has two-factor enabled the
// response carries a challenge ID instead.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/login", req, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteTwoFactor finishes a pending two-factor login with the emailed code.
func (c *Client) CompleteTwoFactor(ctx context.Context, req TwoFactorRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/login/2fa", req, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Session returns the identity behind the current session cookie.
func (c *Client) Session(ctx context.Context) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/session", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/logout", nil, nil, http.StatusNoContent)
}

// ChangePassword rotates the current user's password.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*ChangePasswordResponse, error) {
	var resp ChangePasswordResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/password/change", req, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword requests a reset email. The server answers 202 whether or
// not the email is known.
func (c *Client) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/password/forgot", req, nil, http.StatusAccepted)
}

// ResetPassword redeems an emailed reset token for a new password.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/password/reset", req, nil, http.StatusNoContent)
}

// AuditLog lists the current user's recent security events, newest first.
func (c *Client) AuditLog(ctx context.Context) (*AuditResponse, error) {
	var resp AuditResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/audit", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Livez checks the liveness probe.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Readyz checks the readiness probe.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}
