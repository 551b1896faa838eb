package service

import (
	"context"
	"time"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
)

// LockoutGuard tracks failed-attempt counts and lockout windows per
// identity. All state lives on the identity record; every mutation runs as
// one atomic versioned update so concurrent failures never lose counts.
type LockoutGuard struct {
	Store store.Store

	MaxFailedAttempts int
	LockoutDuration   time.Duration

	// Now overrides the clock in tests. Nil means time.Now UTC.
	Now func() time.Time
}

func (g *LockoutGuard) clock() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

// CheckLocked reports whether the identity is currently barred from
// authenticating. A lockout window observed to be in the past is cleared
// on the spot, counter included, so the identity gets a fresh window.
func (g *LockoutGuard) CheckLocked(ctx context.Context, userID string) (bool, *time.Time, error) {
	now := g.clock()

	var lockedUntil *time.Time
	_, err := updateIdentity(ctx, g.Store.Identities(), userID, func(ident *domain.Identity) error {
		if ident.IsLockedOut(now) {
			lockedUntil = ident.LockoutEndAt
			return errNoChange
		}
		if !ident.ClearExpiredLockout(now) {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	return lockedUntil != nil, lockedUntil, nil
}

// RecordFailure increments the failure counter and engages the lockout
// window once the counter reaches the threshold. Returns whether the
// identity is now locked out and, if so, until when.
func (g *LockoutGuard) RecordFailure(ctx context.Context, userID string) (bool, *time.Time, error) {
	now := g.clock()

	var lockedUntil *time.Time
	_, err := updateIdentity(ctx, g.Store.Identities(), userID, func(ident *domain.Identity) error {
		ident.FailedAccessCount++
		if ident.FailedAccessCount >= g.MaxFailedAttempts {
			end := now.Add(g.LockoutDuration)
			ident.LockoutEndAt = &end
			lockedUntil = &end
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	return lockedUntil != nil, lockedUntil, nil
}

// RecordSuccess resets the failure counter and clears any lockout window.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, userID string) error {
	_, err := updateIdentity(ctx, g.Store.Identities(), userID, func(ident *domain.Identity) error {
		if ident.FailedAccessCount == 0 && ident.LockoutEndAt == nil {
			return errNoChange
		}
		ident.FailedAccessCount = 0
		ident.LockoutEndAt = nil
		return nil
	})
	return err
}
