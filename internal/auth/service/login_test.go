package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
)

const testPassword = "Sup3r-Secret-Pass!"

var codePattern = regexp.MustCompile(`\b\d{6,8}\b`)

func loginReq(email, password string) LoginRequest {
	return LoginRequest{
		Email:         email,
		Password:      password,
		CaptchaToken:  "token",
		SourceAddress: "203.0.113.9",
	}
}

func TestLoginHappyPath(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	outcome, err := e.login.Login(ctx, loginReq("alice@example.com", testPassword))
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, outcome.Status)
	require.NotNil(t, outcome.Session)
	require.NotEmpty(t, outcome.Session.Token)
	require.False(t, outcome.PasswordChangeRequired)

	ok, err := e.login.ValidateSession(ctx, ident.ID, outcome.Session.Token, "203.0.113.9")
	require.NoError(t, err)
	require.True(t, ok)

	actions := waitForAudit(t, e, ident.ID, 1)
	require.Contains(t, actions, domain.AuditLoginSuccess)
}

func TestLoginCaptchaGate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.createIdentity(t, "alice@example.com", testPassword, false)

	t.Run("low score rejects before identity resolution", func(t *testing.T) {
		e.login.Captcha = staticCaptcha{ok: false}
		outcome, err := e.login.Login(ctx, loginReq("alice@example.com", testPassword))
		require.NoError(t, err)
		require.Equal(t, domain.LoginRejected, outcome.Status)
		require.Equal(t, domain.ReasonCaptchaFailed, outcome.Reason)
	})

	t.Run("verifier outage fails closed", func(t *testing.T) {
		e.login.Captcha = staticCaptcha{err: errors.New("siteverify unreachable")}
		outcome, err := e.login.Login(ctx, loginReq("alice@example.com", testPassword))
		require.NoError(t, err)
		require.Equal(t, domain.LoginRejected, outcome.Status)
		require.Equal(t, domain.ReasonCaptchaFailed, outcome.Reason)
	})
}

func TestLoginUnknownEmailIndistinguishableFromWrongPassword(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.createIdentity(t, "alice@example.com", testPassword, false)

	unknown, err := e.login.Login(ctx, loginReq("nobody@example.com", testPassword))
	require.NoError(t, err)

	wrongPassword, err := e.login.Login(ctx, loginReq("alice@example.com", "Wrong-Password-123!"))
	require.NoError(t, err)

	require.Equal(t, unknown.Status, wrongPassword.Status)
	require.Equal(t, unknown.Reason, wrongPassword.Reason)
	require.Equal(t, domain.ReasonInvalidCredential, unknown.Reason)
}

func TestLoginLockoutScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	// Three wrong passwords each come back as a plain rejection; the
	// third engages the lockout window.
	for range 3 {
		outcome, err := e.login.Login(ctx, loginReq("alice@example.com", "Wrong-Password-123!"))
		require.NoError(t, err)
		require.Equal(t, domain.LoginRejected, outcome.Status)
		require.Equal(t, domain.ReasonInvalidCredential, outcome.Reason)
	}

	got := e.getIdentity(t, ident.ID)
	require.Equal(t, 3, got.FailedAccessCount)
	require.NotNil(t, got.LockoutEndAt)

	// Even the correct password is refused while locked.
	outcome, err := e.login.Login(ctx, loginReq("alice@example.com", testPassword))
	require.NoError(t, err)
	require.Equal(t, domain.LoginLockedOut, outcome.Status)
	require.NotNil(t, outcome.LockedUntil)

	// After the window passes the correct password works again and the
	// counters are gone.
	e.advance(2 * time.Minute)
	outcome, err = e.login.Login(ctx, loginReq("alice@example.com", testPassword))
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, outcome.Status)

	got = e.getIdentity(t, ident.ID)
	require.Equal(t, 0, got.FailedAccessCount)
	require.Nil(t, got.LockoutEndAt)

	actions := waitForAudit(t, e, ident.ID, 5)
	require.Contains(t, actions, domain.AuditLoginFailedInvalidCredential)
	require.Contains(t, actions, domain.AuditLoginFailedLockedOut)
	require.Contains(t, actions, domain.AuditLoginSuccess)
}

func TestLoginTwoFactorScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "bob@example.com", testPassword, true)

	outcome, err := e.login.Login(ctx, loginReq("bob@example.com", testPassword))
	require.NoError(t, err)
	require.Equal(t, domain.LoginTwoFactorPending, outcome.Status)
	require.NotEmpty(t, outcome.ChallengeID)
	require.Nil(t, outcome.Session)

	msg := e.sender.last(t)
	require.Equal(t, "bob@example.com", msg.To)
	code := codePattern.FindString(msg.Body)
	require.NotEmpty(t, code)

	// A wrong code is rejected and the challenge survives for retry.
	retry, err := e.login.CompleteTwoFactor(ctx, outcome.ChallengeID, wrongCode(code), "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, domain.LoginRejected, retry.Status)
	require.Equal(t, domain.ReasonCodeMismatch, retry.Reason)

	done, err := e.login.CompleteTwoFactor(ctx, outcome.ChallengeID, code, "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, done.Status)
	require.NotNil(t, done.Session)

	ok, err := e.login.ValidateSession(ctx, ident.ID, done.Session.Token, "203.0.113.9")
	require.NoError(t, err)
	require.True(t, ok)

	// The challenge is single use.
	again, err := e.login.CompleteTwoFactor(ctx, outcome.ChallengeID, code, "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, domain.ReasonNoPendingChallenge, again.Reason)
}

func TestLoginPasswordChangeRequiredFlag(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "old@example.com", testPassword, false)

	// Age the password past the 30 day maximum.
	old := e.clock().Add(-31 * 24 * time.Hour)
	got := e.getIdentity(t, ident.ID)
	got.LastPasswordChangeAt = &old
	require.NoError(t, e.store.Identities().Update(ctx, got, got.Version))

	outcome, err := e.login.Login(ctx, loginReq("old@example.com", testPassword))
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, outcome.Status)
	require.True(t, outcome.PasswordChangeRequired)
}

func TestSessionConflictForcesSignout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	first, err := e.login.Login(ctx, loginReq("alice@example.com", testPassword))
	require.NoError(t, err)
	second, err := e.login.Login(ctx, loginReq("alice@example.com", testPassword))
	require.NoError(t, err)

	// The newer session wins; the older one is detected as a conflict on
	// its next request.
	ok, err := e.login.ValidateSession(ctx, ident.ID, second.Session.Token, "203.0.113.9")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.login.ValidateSession(ctx, ident.ID, first.Session.Token, "198.51.100.7")
	require.NoError(t, err)
	require.False(t, ok)

	actions := waitForAudit(t, e, ident.ID, 3)
	require.Contains(t, actions, domain.AuditLoggedOutSessionConflict)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ident := e.createIdentity(t, "alice@example.com", testPassword, false)

	outcome, err := e.login.Login(ctx, loginReq("alice@example.com", testPassword))
	require.NoError(t, err)

	require.NoError(t, e.login.Logout(ctx, ident.ID, "203.0.113.9"))

	ok, err := e.login.ValidateSession(ctx, ident.ID, outcome.Session.Token, "203.0.113.9")
	require.NoError(t, err)
	require.False(t, ok)

	actions := waitForAudit(t, e, ident.ID, 2)
	require.Contains(t, actions, domain.AuditLogout)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	ident, err := e.login.Register(ctx, "new@example.com", "New User", testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, ident.ID)
	require.NotNil(t, ident.LastPasswordChangeAt)

	t.Run("weak password rejected", func(t *testing.T) {
		_, err := e.login.Register(ctx, "weak@example.com", "", "short")
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := e.login.Register(ctx, "new@example.com", "", testPassword)
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("fresh account can log in", func(t *testing.T) {
		outcome, err := e.login.Login(ctx, loginReq("new@example.com", testPassword))
		require.NoError(t, err)
		require.Equal(t, domain.LoginAuthenticated, outcome.Status)
	})
}
