package domain

import "time"

// AuditAction classifies a security-relevant event.
type AuditAction string

const (
	AuditLoginSuccess                 AuditAction = "login_success"
	AuditLoginFailedInvalidCredential AuditAction = "login_failed_invalid_credential"
	AuditLoginFailedLockedOut         AuditAction = "login_failed_locked_out"
	AuditLogout                       AuditAction = "logout"
	AuditLoggedOutSessionConflict     AuditAction = "logged_out_session_conflict"
	AuditPasswordChanged              AuditAction = "password_changed"
	AuditPasswordResetSuccess         AuditAction = "password_reset_success"
)

// AuditEvent is one append-only entry in the security audit trail.
type AuditEvent struct {
	ID            string
	UserID        string
	Action        AuditAction
	SourceAddress string
	OccurredAt    time.Time
}
