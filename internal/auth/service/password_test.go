package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
)

var resetLinkPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

const (
	passP1 = "First-Passw0rd-One!"
	passP2 = "Second-Passw0rd-Two!"
	passP3 = "Third-Passw0rd-Three!"
	passP4 = "Fourth-Passw0rd-Four!"
)

func TestValidateComplexity(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"meets all requirements", "Sup3r-Secret-Pass!", true},
		{"too short", "Ab1!x", false},
		{"missing upper", "lower-cased-pass1!", false},
		{"missing lower", "UPPER-CASED-PASS1!", false},
		{"missing digit", "No-Digits-Here-Pass!", false},
		{"missing special", "NoSpecialChars123ABC", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateComplexity(tc.password)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}

func TestChangePasswordRotatesHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", passP1, false)

	change := func(current, next string) error {
		_, err := e.passwords.ChangePassword(ctx, ident.ID, current, next, "203.0.113.9")
		return err
	}

	require.NoError(t, change(passP1, passP2))
	require.NoError(t, change(passP2, passP3))
	require.NoError(t, change(passP3, passP4))

	// After P1 -> P2 -> P3 -> P4 the history holds exactly P3 and P2.
	got := e.getIdentity(t, ident.ID)
	require.NotNil(t, got.PasswordPrev1)
	require.NotNil(t, got.PasswordPrev2)
	require.True(t, e.hasher.Verify(passP3, *got.PasswordPrev1))
	require.True(t, e.hasher.Verify(passP2, *got.PasswordPrev2))
	require.False(t, e.hasher.Verify(passP1, *got.PasswordPrev1))
	require.False(t, e.hasher.Verify(passP1, *got.PasswordPrev2))

	t.Run("reusing either history entry is rejected", func(t *testing.T) {
		require.ErrorIs(t, change(passP4, passP3), ErrPasswordReused)
		require.ErrorIs(t, change(passP4, passP2), ErrPasswordReused)
	})

	t.Run("a third-generation-old password is allowed again", func(t *testing.T) {
		require.NoError(t, change(passP4, passP1))
	})
}

func TestChangePasswordCurrentMismatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", passP1, false)

	_, err := e.passwords.ChangePassword(ctx, ident.ID, "Not-The-Passw0rd!", passP2, "203.0.113.9")
	require.ErrorIs(t, err, ErrCurrentPasswordMismatch)

	// Nothing rotated.
	got := e.getIdentity(t, ident.ID)
	require.Nil(t, got.PasswordPrev1)
	require.True(t, e.hasher.Verify(passP1, got.PasswordHash))
}

func TestChangePasswordMinAge(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.passwords.MinPasswordAge = 24 * time.Hour
	ident := e.createIdentity(t, "alice@example.com", passP1, false)

	_, err := e.passwords.ChangePassword(ctx, ident.ID, passP1, passP2, "203.0.113.9")
	require.ErrorIs(t, err, ErrPasswordTooYoung)

	e.advance(25 * time.Hour)
	_, err = e.passwords.ChangePassword(ctx, ident.ID, passP1, passP2, "203.0.113.9")
	require.NoError(t, err)
}

func TestChangePasswordMaxAgeFlagsButNeverBlocks(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", passP1, false)

	old := e.clock().Add(-31 * 24 * time.Hour)
	got := e.getIdentity(t, ident.ID)
	got.LastPasswordChangeAt = &old
	require.NoError(t, e.store.Identities().Update(ctx, got, got.Version))

	result, err := e.passwords.ChangePassword(ctx, ident.ID, passP1, passP2, "203.0.113.9")
	require.NoError(t, err)
	require.True(t, result.WasExpired)

	// A fresh password is not flagged.
	result, err = e.passwords.ChangePassword(ctx, ident.ID, passP2, passP3, "203.0.113.9")
	require.NoError(t, err)
	require.False(t, result.WasExpired)
}

func TestChangePasswordAudited(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", passP1, false)

	_, err := e.passwords.ChangePassword(ctx, ident.ID, passP1, passP2, "203.0.113.9")
	require.NoError(t, err)

	actions := waitForAudit(t, e, ident.ID, 1)
	require.Contains(t, actions, domain.AuditPasswordChanged)
}

func TestForgotPasswordFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", passP1, false)

	t.Run("unknown email responds identically and sends nothing", func(t *testing.T) {
		before := e.sender.count()
		require.NoError(t, e.passwords.ForgotPassword(ctx, "nobody@example.com", "203.0.113.9"))
		require.Equal(t, before, e.sender.count())
	})

	require.NoError(t, e.passwords.ForgotPassword(ctx, "alice@example.com", "203.0.113.9"))

	msg := e.sender.last(t)
	require.Equal(t, "alice@example.com", msg.To)
	match := resetLinkPattern.FindStringSubmatch(msg.Body)
	require.Len(t, match, 2)
	token := match[1]

	t.Run("reset rotates the password and revokes the session", func(t *testing.T) {
		session, err := e.sessions.Establish(ctx, ident.ID, false)
		require.NoError(t, err)

		require.NoError(t, e.passwords.ResetPassword(ctx, token, passP2, "203.0.113.9"))

		got := e.getIdentity(t, ident.ID)
		require.True(t, e.hasher.Verify(passP2, got.PasswordHash))
		require.NotNil(t, got.PasswordPrev1)
		require.True(t, e.hasher.Verify(passP1, *got.PasswordPrev1))
		require.Nil(t, got.ActiveSessionID)

		ok, err := e.sessions.Validate(ctx, ident.ID, session.Token)
		require.NoError(t, err)
		require.False(t, ok)

		actions := waitForAudit(t, e, ident.ID, 1)
		require.Contains(t, actions, domain.AuditPasswordResetSuccess)
	})

	t.Run("the token is single use", func(t *testing.T) {
		err := e.passwords.ResetPassword(ctx, token, passP3, "203.0.113.9")
		require.ErrorIs(t, err, ErrInvalidResetToken)
	})
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.createIdentity(t, "alice@example.com", passP1, false)

	require.NoError(t, e.passwords.ForgotPassword(ctx, "alice@example.com", "203.0.113.9"))
	token := resetLinkPattern.FindStringSubmatch(e.sender.last(t).Body)[1]

	e.advance(2 * time.Hour)

	err := e.passwords.ResetPassword(ctx, token, passP2, "203.0.113.9")
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordAppliesReuseRules(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.createIdentity(t, "alice@example.com", passP1, false)

	require.NoError(t, e.passwords.ForgotPassword(ctx, "alice@example.com", "203.0.113.9"))
	token := resetLinkPattern.FindStringSubmatch(e.sender.last(t).Body)[1]

	err := e.passwords.ResetPassword(ctx, token, passP1, "203.0.113.9")
	require.ErrorIs(t, err, ErrPasswordReused)
}

func TestResetPasswordRejectsGarbageToken(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	err := e.passwords.ResetPassword(ctx, "not-a-real-token", passP2, "203.0.113.9")
	require.ErrorIs(t, err, ErrInvalidResetToken)
}
