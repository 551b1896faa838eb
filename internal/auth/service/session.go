package service

import (
	"context"
	"fmt"
	"time"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/cryptox"
)

// SessionRegistry enforces at most one live session per identity. Only the
// fingerprint of the opaque session token is stored; the token itself is
// returned once to the caller. A second login from elsewhere overwrites
// the stored fingerprint, so the first session fails its next validation.
type SessionRegistry struct {
	Store store.Store

	SessionTTL    time.Duration
	RememberMeTTL time.Duration

	// Now overrides the clock in tests. Nil means time.Now UTC.
	Now func() time.Time
}

func (r *SessionRegistry) clock() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Establish issues a fresh session for the identity, superseding any prior
// one. Establishing a session is the commit point of a successful
// authentication, so the failure counter and lockout window reset in the
// same atomic update.
func (r *SessionRegistry) Establish(ctx context.Context, userID string, rememberMe bool) (domain.Session, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate session token: %w", err)
	}

	ttl := r.SessionTTL
	if rememberMe && r.RememberMeTTL > ttl {
		ttl = r.RememberMeTTL
	}

	fingerprint := cryptox.FingerprintToken(token)
	expiresAt := r.clock().Add(ttl)

	_, err = updateIdentity(ctx, r.Store.Identities(), userID, func(ident *domain.Identity) error {
		ident.ActiveSessionID = &fingerprint
		ident.SessionExpiresAt = &expiresAt
		ident.FailedAccessCount = 0
		ident.LockoutEndAt = nil
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		Token:      token,
		ExpiresAt:  expiresAt,
		RememberMe: rememberMe,
	}, nil
}

// Validate reports whether the presented token is the single session
// currently authorized for the identity.
func (r *SessionRegistry) Validate(ctx context.Context, userID, presentedToken string) (bool, error) {
	ident, err := r.Store.Identities().GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	if !ident.HasLiveSession(r.clock()) {
		return false, nil
	}

	return cryptox.FingerprintEqual(*ident.ActiveSessionID, presentedToken), nil
}

// Invalidate clears the stored session marker (logout or forced signout).
func (r *SessionRegistry) Invalidate(ctx context.Context, userID string) error {
	_, err := updateIdentity(ctx, r.Store.Identities(), userID, func(ident *domain.Identity) error {
		if ident.ActiveSessionID == nil && ident.SessionExpiresAt == nil {
			return errNoChange
		}
		ident.ActiveSessionID = nil
		ident.SessionExpiresAt = nil
		return nil
	})
	return err
}
