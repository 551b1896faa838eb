package domain

import "time"

// PendingChallenge is the single in-flight second-factor challenge for an
// identity. The emailed code is never stored; only its fingerprint is.
type PendingChallenge struct {
	ID              string
	UserID          string
	CodeFingerprint string
	RememberMe      bool
	Attempts        int
	IssuedAt        time.Time
	ExpiresAt       time.Time
}

// Expired reports whether the challenge's TTL has elapsed.
func (c PendingChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
