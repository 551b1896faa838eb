// Package redis provides a transient challenge repository backed by Redis.
// Challenges expire via key TTLs, so the housekeeping sweep is a no-op.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
)

const (
	challengeKeyPrefix = "gatehouse:challenge:"
	userIndexPrefix    = "gatehouse:challenge_user:"

	fieldUserID      = "user_id"
	fieldFingerprint = "code_fingerprint"
	fieldRememberMe  = "remember_me"
	fieldAttempts    = "attempts"
	fieldIssuedAt    = "issued_at"
	fieldExpiresAt   = "expires_at"
)

// NewClient builds a go-redis client with pool and timeout settings suited
// to the short-lived challenge workload, verifying connectivity up front.
func NewClient(addr, password string, db int) (*red.Client, error) {
	client := red.NewClient(&red.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// Challenges implements store.Challenges on Redis. One hash per challenge
// plus a per-user index key to enforce the single-live-challenge rule.
type Challenges struct {
	client *red.Client
}

func NewChallenges(client *red.Client) *Challenges {
	return &Challenges{client: client}
}

func challengeKey(id string) string  { return challengeKeyPrefix + id }
func userIndexKey(uid string) string { return userIndexPrefix + uid }

func (r *Challenges) Put(ctx context.Context, c domain.PendingChallenge) error {
	// Supersede any prior challenge for the same user.
	if prevID, err := r.client.Get(ctx, userIndexKey(c.UserID)).Result(); err == nil && prevID != "" {
		if err := r.client.Del(ctx, challengeKey(prevID)).Err(); err != nil {
			return fmt.Errorf("redis supersede challenge: %w", err)
		}
	} else if err != nil && err != red.Nil {
		return fmt.Errorf("redis read challenge index: %w", err)
	}

	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, challengeKey(c.ID), map[string]any{
		fieldUserID:      c.UserID,
		fieldFingerprint: c.CodeFingerprint,
		fieldRememberMe:  strconv.FormatBool(c.RememberMe),
		fieldAttempts:    strconv.Itoa(c.Attempts),
		fieldIssuedAt:    strconv.FormatInt(c.IssuedAt.Unix(), 10),
		fieldExpiresAt:   strconv.FormatInt(c.ExpiresAt.Unix(), 10),
	})
	pipe.Expire(ctx, challengeKey(c.ID), ttl)
	pipe.Set(ctx, userIndexKey(c.UserID), c.ID, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store challenge: %w", err)
	}
	return nil
}

func (r *Challenges) GetByID(ctx context.Context, id string) (domain.PendingChallenge, error) {
	values, err := r.client.HGetAll(ctx, challengeKey(id)).Result()
	if err != nil {
		return domain.PendingChallenge{}, fmt.Errorf("redis read challenge: %w", err)
	}
	if len(values) == 0 {
		return domain.PendingChallenge{}, store.ErrNotFound
	}

	issuedAt, err := parseUnix(values[fieldIssuedAt])
	if err != nil {
		return domain.PendingChallenge{}, fmt.Errorf("parse issued_at: %w", err)
	}
	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return domain.PendingChallenge{}, fmt.Errorf("parse expires_at: %w", err)
	}

	attempts, _ := strconv.Atoi(values[fieldAttempts])
	rememberMe, _ := strconv.ParseBool(values[fieldRememberMe])

	return domain.PendingChallenge{
		ID:              id,
		UserID:          values[fieldUserID],
		CodeFingerprint: values[fieldFingerprint],
		RememberMe:      rememberMe,
		Attempts:        attempts,
		IssuedAt:        issuedAt,
		ExpiresAt:       expiresAt,
	}, nil
}

func (r *Challenges) IncrementAttempts(ctx context.Context, id string) (domain.PendingChallenge, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return domain.PendingChallenge{}, err
	}

	if err := r.client.HIncrBy(ctx, challengeKey(id), fieldAttempts, 1).Err(); err != nil {
		return domain.PendingChallenge{}, fmt.Errorf("redis increment attempts: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Challenges) Delete(ctx context.Context, id string) error {
	userID, err := r.client.HGet(ctx, challengeKey(id), fieldUserID).Result()
	if err != nil && err != red.Nil {
		return fmt.Errorf("redis read challenge owner: %w", err)
	}

	keys := []string{challengeKey(id)}
	if userID != "" {
		keys = append(keys, userIndexKey(userID))
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete challenge: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; Redis key TTLs reclaim expired challenges.
func (r *Challenges) DeleteExpired(ctx context.Context) error {
	return nil
}

func parseUnix(raw string) (time.Time, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}
