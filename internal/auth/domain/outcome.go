package domain

import "time"

// LoginStatus is the terminal state of one login or second-factor attempt.
type LoginStatus string

const (
	LoginRejected         LoginStatus = "rejected"
	LoginLockedOut        LoginStatus = "locked_out"
	LoginTwoFactorPending LoginStatus = "two_factor_pending"
	LoginAuthenticated    LoginStatus = "authenticated"
)

// RejectReason narrows a rejected outcome. Callers map these to
// enumeration-resistant messages; the reason is for internal decisions and
// the audit trail, not for verbatim display.
type RejectReason string

const (
	ReasonCaptchaFailed      RejectReason = "captcha_failed"
	ReasonInvalidCredential  RejectReason = "invalid_credential"
	ReasonNoPendingChallenge RejectReason = "no_pending_challenge"
	ReasonCodeMismatch       RejectReason = "code_mismatch"
	ReasonChallengeExpired   RejectReason = "challenge_expired"
	ReasonTooManyAttempts    RejectReason = "too_many_attempts"
)

// Session is the opaque token handed to an authenticated caller. Only its
// fingerprint is ever stored.
type Session struct {
	Token      string
	ExpiresAt  time.Time
	RememberMe bool
}

// LoginOutcome is the discriminated result of Login and CompleteTwoFactor.
type LoginOutcome struct {
	Status LoginStatus
	Reason RejectReason // set when Status == LoginRejected

	// UserID identifies the authenticated identity. Set when Status ==
	// LoginAuthenticated.
	UserID string

	// Session is set when Status == LoginAuthenticated.
	Session *Session

	// ChallengeID is set when Status == LoginTwoFactorPending and is the
	// handle the caller presents to CompleteTwoFactor.
	ChallengeID string

	// PasswordChangeRequired flags a password older than the configured
	// maximum age. Authentication still succeeds; the caller should steer
	// the user to a change-password flow.
	PasswordChangeRequired bool

	// LockedUntil is set when Status == LoginLockedOut.
	LockedUntil *time.Time
}
