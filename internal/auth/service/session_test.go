package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionSingleOwnership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	s1, err := e.sessions.Establish(ctx, ident.ID, false)
	require.NoError(t, err)

	ok, err := e.sessions.Validate(ctx, ident.ID, s1.Token)
	require.NoError(t, err)
	require.True(t, ok)

	s2, err := e.sessions.Establish(ctx, ident.ID, false)
	require.NoError(t, err)
	require.NotEqual(t, s1.Token, s2.Token)

	ok, err = e.sessions.Validate(ctx, ident.ID, s1.Token)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = e.sessions.Validate(ctx, ident.ID, s2.Token)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSessionEstablishResetsFailureState(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	for range 3 {
		_, _, err := e.lockout.RecordFailure(ctx, ident.ID)
		require.NoError(t, err)
	}

	_, err := e.sessions.Establish(ctx, ident.ID, false)
	require.NoError(t, err)

	got := e.getIdentity(t, ident.ID)
	require.Equal(t, 0, got.FailedAccessCount)
	require.Nil(t, got.LockoutEndAt)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	s, err := e.sessions.Establish(ctx, ident.ID, false)
	require.NoError(t, err)
	require.True(t, s.ExpiresAt.Equal(e.clock().Add(5*time.Minute)))

	e.advance(6 * time.Minute)

	ok, err := e.sessions.Validate(ctx, ident.ID, s.Token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionRememberMeExtendsTTL(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	s, err := e.sessions.Establish(ctx, ident.ID, true)
	require.NoError(t, err)
	require.True(t, s.RememberMe)
	require.True(t, s.ExpiresAt.Equal(e.clock().Add(14*24*time.Hour)))

	e.advance(6 * time.Minute)

	ok, err := e.sessions.Validate(ctx, ident.ID, s.Token)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSessionInvalidate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	s, err := e.sessions.Establish(ctx, ident.ID, false)
	require.NoError(t, err)

	require.NoError(t, e.sessions.Invalidate(ctx, ident.ID))

	ok, err := e.sessions.Validate(ctx, ident.ID, s.Token)
	require.NoError(t, err)
	require.False(t, ok)

	// Idempotent on an already-clear identity.
	require.NoError(t, e.sessions.Invalidate(ctx, ident.ID))
}
