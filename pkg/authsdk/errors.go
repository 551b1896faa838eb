package authsdk

import (
	"fmt"
	"net/http"

	"github.com/verdanthq/gatehouse/pkg/httpx"
)

// Error codes shared by the server handlers and the SDK client.
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidCredentials      = "invalid_credentials"
	ErrorCodeCaptchaFailed           = "captcha_failed"
	ErrorCodeLockedOut               = "locked_out"
	ErrorCodeChallengeFailed         = "challenge_failed"
	ErrorCodeInvalidSession          = "invalid_session"
	ErrorCodeWeakPassword            = "weak_password"
	ErrorCodePasswordReused          = "password_reused"
	ErrorCodePasswordTooYoung        = "password_too_young"
	ErrorCodeCurrentPasswordMismatch = "current_password_mismatch"
	ErrorCodeInvalidResetToken       = "invalid_reset_token"
	ErrorCodeEmailTaken              = "email_taken"
	ErrorCodeServerError             = "server_error"
)

// AuthError is the JSON error body returned by every endpoint. It is used
// both by handlers to write responses and by the SDK to surface them.
type AuthError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this AuthError to an HTTP response writer.
func (e *AuthError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// Predefined errors. Credential failures share one enumeration-resistant
// message no matter which internal check rejected the attempt.
var (
	ErrInvalidRequest = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidCredentials = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid email or password",
	}

	ErrCaptchaFailed = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeCaptchaFailed,
		Description: "captcha verification failed",
	}

	ErrLockedOut = &AuthError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeLockedOut,
		Description: "account temporarily locked due to failed attempts",
	}

	ErrChallengeFailed = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeChallengeFailed,
		Description: "verification code invalid or expired",
	}

	ErrInvalidSession = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidSession,
		Description: "session is missing, expired, or superseded by a newer login",
	}

	ErrWeakPassword = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeWeakPassword,
		Description: "password must be at least 12 characters with upper, lower, digit and special characters",
	}

	ErrPasswordReused = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodePasswordReused,
		Description: "password was used recently and cannot be reused yet",
	}

	ErrPasswordTooYoung = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodePasswordTooYoung,
		Description: "password was changed too recently",
	}

	ErrCurrentPasswordMismatch = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeCurrentPasswordMismatch,
		Description: "current password is incorrect",
	}

	ErrInvalidResetToken = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidResetToken,
		Description: "reset link is invalid, expired, or already used",
	}

	ErrEmailTaken = &AuthError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeEmailTaken,
		Description: "an account with this email already exists",
	}

	ErrServerError = &AuthError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "an unexpected error occurred",
	}
)
