package authsdk

import "time"

// ErrorResponse is the JSON error body, used for unmarshaling on the
// client side. Server code uses AuthError from errors.go.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// LoginRequest is the body of POST /v1/login.
type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
	RememberMe   bool   `json:"remember_me,omitempty"`
}

// Login outcome statuses as they appear on the wire.
const (
	LoginStatusAuthenticated    = "authenticated"
	LoginStatusTwoFactorPending = "two_factor_pending"
)

// LoginResponse is returned by POST /v1/login and POST /v1/login/2fa.
// When Status is "two_factor_pending" the session cookie is withheld and
// ChallengeID must be presented to the 2fa endpoint.
type LoginResponse struct {
	Status                 string     `json:"status"`
	ChallengeID            string     `json:"challenge_id,omitempty"`
	SessionExpiresAt       *time.Time `json:"session_expires_at,omitempty"`
	PasswordChangeRequired bool       `json:"password_change_required,omitempty"`
}

// TwoFactorRequest is the body of POST /v1/login/2fa.
type TwoFactorRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

// RegisterRequest is the body of POST /v1/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password"`
}

// RegisterResponse is returned by POST /v1/register.
type RegisterResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// SessionResponse is returned by GET /v1/session for a valid session.
type SessionResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// ChangePasswordRequest is the body of POST /v1/password/change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePasswordResponse flags whether the superseded password had
// already exceeded its maximum age.
type ChangePasswordResponse struct {
	WasExpired bool `json:"was_expired"`
}

// ForgotPasswordRequest is the body of POST /v1/password/forgot. The
// response is 202 with no body regardless of whether the email exists.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /v1/password/reset.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// AuditEntry is one security event in the caller's audit trail.
type AuditEntry struct {
	Action        string    `json:"action"`
	SourceAddress string    `json:"source_address,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AuditResponse is returned by GET /v1/audit, newest first.
type AuditResponse struct {
	Events []AuditEntry `json:"events"`
}

// HealthResponse is returned by the /livez and /readyz probes.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
