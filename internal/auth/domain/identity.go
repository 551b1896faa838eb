package domain

import "time"

// HistoryDepth is the fixed number of superseded password hashes retained
// per identity for reuse checks.
const HistoryDepth = 2

// Identity is the durable credential record for one account.
type Identity struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string // argon2 encoded

	// The two most recently superseded hashes. PasswordPrev1 is the newer.
	PasswordPrev1 *string
	PasswordPrev2 *string

	LastPasswordChangeAt *time.Time
	FailedAccessCount    int
	LockoutEndAt         *time.Time
	TwoFactorEnabled     bool

	// Fingerprint of the single session token currently authorized for
	// this identity, with its expiry. Nil means no live session.
	ActiveSessionID  *string
	SessionExpiresAt *time.Time

	// Version guards read-modify-write updates. Drivers bump it on every
	// successful write and reject writes carrying a stale value.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PushPasswordHistory records a superseded hash, evicting the oldest entry
// once both history slots are occupied.
func (i *Identity) PushPasswordHistory(oldHash string) {
	i.PasswordPrev2 = i.PasswordPrev1
	i.PasswordPrev1 = &oldHash
}

// PasswordHistory returns the retained superseded hashes, newest first.
func (i *Identity) PasswordHistory() []string {
	var history []string
	if i.PasswordPrev1 != nil {
		history = append(history, *i.PasswordPrev1)
	}
	if i.PasswordPrev2 != nil {
		history = append(history, *i.PasswordPrev2)
	}
	return history
}

// IsLockedOut reports whether a lockout window is currently in force.
func (i *Identity) IsLockedOut(now time.Time) bool {
	return i.LockoutEndAt != nil && now.Before(*i.LockoutEndAt)
}

// ClearExpiredLockout clears a lockout window that has already passed and
// resets the failure counter so the identity gets a fresh window. Returns
// true if anything was cleared.
func (i *Identity) ClearExpiredLockout(now time.Time) bool {
	if i.LockoutEndAt == nil || now.Before(*i.LockoutEndAt) {
		return false
	}
	i.LockoutEndAt = nil
	i.FailedAccessCount = 0
	return true
}

// PasswordExpired reports whether the stored password is older than maxAge.
// Identities that never changed their password are never expired, and a
// non-positive maxAge disables the check.
func (i *Identity) PasswordExpired(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 || i.LastPasswordChangeAt == nil {
		return false
	}
	return now.After(i.LastPasswordChangeAt.Add(maxAge))
}

// HasLiveSession reports whether the stored session marker is present and
// not yet expired.
func (i *Identity) HasLiveSession(now time.Time) bool {
	if i.ActiveSessionID == nil {
		return false
	}
	if i.SessionExpiresAt != nil && now.After(*i.SessionExpiresAt) {
		return false
	}
	return true
}
