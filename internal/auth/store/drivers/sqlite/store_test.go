package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newIdentity(email string) domain.Identity {
	now := time.Now().UTC()
	return domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: "$argon2id$fake",
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestIdentitiesRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ident := newIdentity("alice@example.com")
	require.NoError(t, st.Identities().Create(ctx, ident))

	t.Run("get by id and email", func(t *testing.T) {
		got, err := st.Identities().GetByID(ctx, ident.ID)
		require.NoError(t, err)
		require.Equal(t, ident.Email, got.Email)
		require.EqualValues(t, 1, got.Version)

		got, err = st.Identities().GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, ident.ID, got.ID)
	})

	t.Run("missing identity maps to ErrNotFound", func(t *testing.T) {
		_, err := st.Identities().GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email maps to ErrAlreadyExists", func(t *testing.T) {
		err := st.Identities().Create(ctx, newIdentity("alice@example.com"))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestIdentitiesVersionedUpdate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ident := newIdentity("bob@example.com")
	require.NoError(t, st.Identities().Create(ctx, ident))

	ident.FailedAccessCount = 2
	require.NoError(t, st.Identities().Update(ctx, ident, 1))

	got, err := st.Identities().GetByID(ctx, ident.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.FailedAccessCount)
	require.EqualValues(t, 2, got.Version)

	t.Run("stale version conflicts", func(t *testing.T) {
		ident.FailedAccessCount = 3
		err := st.Identities().Update(ctx, ident, 1)
		require.ErrorIs(t, err, store.ErrConflict)

		// The stored row is untouched.
		got, err := st.Identities().GetByID(ctx, ident.ID)
		require.NoError(t, err)
		require.Equal(t, 2, got.FailedAccessCount)
	})

	t.Run("nullable fields survive the round trip", func(t *testing.T) {
		got, err := st.Identities().GetByID(ctx, ident.ID)
		require.NoError(t, err)

		lockEnd := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
		session := "fingerprint"
		got.LockoutEndAt = &lockEnd
		got.ActiveSessionID = &session
		require.NoError(t, st.Identities().Update(ctx, got, got.Version))

		got, err = st.Identities().GetByID(ctx, ident.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LockoutEndAt)
		require.True(t, lockEnd.Equal(got.LockoutEndAt.UTC()))
		require.NotNil(t, got.ActiveSessionID)
		require.Equal(t, "fingerprint", *got.ActiveSessionID)
		require.Nil(t, got.PasswordPrev1)
	})
}

func TestChallengesSupersedeAndAttempts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ident := newIdentity("carol@example.com")
	require.NoError(t, st.Identities().Create(ctx, ident))

	now := time.Now().UTC()
	first := domain.PendingChallenge{
		ID:              idx.New().String(),
		UserID:          ident.ID,
		CodeFingerprint: "fp-1",
		IssuedAt:        now,
		ExpiresAt:       now.Add(5 * time.Minute),
	}
	require.NoError(t, st.Challenges().Put(ctx, first))

	second := first
	second.ID = idx.New().String()
	second.CodeFingerprint = "fp-2"
	second.RememberMe = true
	require.NoError(t, st.Challenges().Put(ctx, second))

	// The first challenge is superseded, not duplicated.
	_, err := st.Challenges().GetByID(ctx, first.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := st.Challenges().GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "fp-2", got.CodeFingerprint)
	require.True(t, got.RememberMe)

	got, err = st.Challenges().IncrementAttempts(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)

	require.NoError(t, st.Challenges().Delete(ctx, second.ID))
	_, err = st.Challenges().GetByID(ctx, second.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestChallengesDeleteExpired(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ident := newIdentity("dave@example.com")
	require.NoError(t, st.Identities().Create(ctx, ident))

	expired := domain.PendingChallenge{
		ID:              idx.New().String(),
		UserID:          ident.ID,
		CodeFingerprint: "fp",
		IssuedAt:        time.Now().UTC().Add(-time.Hour),
		ExpiresAt:       time.Now().UTC().Add(-55 * time.Minute),
	}
	require.NoError(t, st.Challenges().Put(ctx, expired))

	require.NoError(t, st.Challenges().DeleteExpired(ctx))

	_, err := st.Challenges().GetByID(ctx, expired.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetTokens(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ident := newIdentity("erin@example.com")
	require.NoError(t, st.Identities().Create(ctx, ident))

	now := time.Now().UTC()
	token := domain.ResetToken{
		ID:               idx.New().String(),
		UserID:           ident.ID,
		TokenFingerprint: "reset-fp",
		ExpiresAt:        now.Add(time.Hour),
		CreatedAt:        now,
	}
	require.NoError(t, st.ResetTokens().Create(ctx, token))

	got, err := st.ResetTokens().GetByFingerprint(ctx, "reset-fp")
	require.NoError(t, err)
	require.Equal(t, token.ID, got.ID)
	require.Nil(t, got.UsedAt)
	require.True(t, got.Usable(now))

	require.NoError(t, st.ResetTokens().MarkUsed(ctx, token.ID))

	got, err = st.ResetTokens().GetByFingerprint(ctx, "reset-fp")
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)
	require.False(t, got.Usable(now))

	require.NoError(t, st.ResetTokens().DeleteExpired(ctx))
	_, err = st.ResetTokens().GetByFingerprint(ctx, "reset-fp")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuditEventsListNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, action := range []domain.AuditAction{
		domain.AuditLoginFailedInvalidCredential,
		domain.AuditLoginSuccess,
		domain.AuditLogout,
	} {
		require.NoError(t, st.AuditEvents().Append(ctx, domain.AuditEvent{
			ID:            idx.New().String(),
			UserID:        "user-1",
			Action:        action,
			SourceAddress: "203.0.113.9",
			OccurredAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, st.AuditEvents().Append(ctx, domain.AuditEvent{
		ID:         idx.New().String(),
		UserID:     "user-2",
		Action:     domain.AuditLoginSuccess,
		OccurredAt: base,
	}))

	events, err := st.AuditEvents().ListByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, domain.AuditLogout, events[0].Action)
	require.Equal(t, domain.AuditLoginFailedInvalidCredential, events[2].Action)

	events, err = st.AuditEvents().ListByUser(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ident := newIdentity("frank@example.com")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().Create(ctx, ident); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.Identities().GetByID(ctx, ident.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
