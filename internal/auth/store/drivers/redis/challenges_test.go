package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/idx"
)

func newTestChallenges(t *testing.T) (*Challenges, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewChallenges(client), mr
}

func newChallenge(userID string) domain.PendingChallenge {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.PendingChallenge{
		ID:              idx.New().String(),
		UserID:          userID,
		CodeFingerprint: "fp",
		IssuedAt:        now,
		ExpiresAt:       now.Add(5 * time.Minute),
	}
}

func TestChallengesRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestChallenges(t)

	c := newChallenge("user-1")
	c.RememberMe = true
	require.NoError(t, repo.Put(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.UserID, got.UserID)
	require.Equal(t, c.CodeFingerprint, got.CodeFingerprint)
	require.True(t, got.RememberMe)
	require.Equal(t, 0, got.Attempts)
	require.True(t, c.ExpiresAt.Equal(got.ExpiresAt))
}

func TestChallengesSupersede(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestChallenges(t)

	first := newChallenge("user-1")
	require.NoError(t, repo.Put(ctx, first))

	second := newChallenge("user-1")
	second.CodeFingerprint = "fp-2"
	require.NoError(t, repo.Put(ctx, second))

	_, err := repo.GetByID(ctx, first.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "fp-2", got.CodeFingerprint)
}

func TestChallengesIncrementAttempts(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestChallenges(t)

	c := newChallenge("user-1")
	require.NoError(t, repo.Put(ctx, c))

	got, err := repo.IncrementAttempts(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)

	got, err = repo.IncrementAttempts(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Attempts)

	_, err = repo.IncrementAttempts(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestChallengesDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestChallenges(t)

	c := newChallenge("user-1")
	require.NoError(t, repo.Put(ctx, c))

	require.NoError(t, repo.Delete(ctx, c.ID))

	_, err := repo.GetByID(ctx, c.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// A fresh challenge for the same user works after deletion.
	require.NoError(t, repo.Put(ctx, newChallenge("user-1")))
}

func TestChallengesExpireViaTTL(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestChallenges(t)

	c := newChallenge("user-1")
	require.NoError(t, repo.Put(ctx, c))

	mr.FastForward(6 * time.Minute)

	_, err := repo.GetByID(ctx, c.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
