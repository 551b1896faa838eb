package domain

import "time"

// ResetToken is a single-use, time-bounded proof of identity for the
// email password-reset flow. Only the fingerprint of the opaque token is
// stored; the token itself is delivered out-of-band.
type ResetToken struct {
	ID               string
	UserID           string
	TokenFingerprint string
	ExpiresAt        time.Time
	UsedAt           *time.Time
	CreatedAt        time.Time
}

// Usable reports whether the token is unconsumed and unexpired.
func (t ResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
