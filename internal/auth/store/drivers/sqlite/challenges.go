package sqlite

import (
	"context"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
)

type challengesRepo struct {
	db dbtx
}

// Put inserts the challenge, replacing any prior challenge for the same
// user. The user_id UNIQUE constraint enforces at most one live challenge
// per identity.
func (r *challengesRepo) Put(ctx context.Context, c domain.PendingChallenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_challenges (
			id, user_id, code_fingerprint, remember_me, attempts, issued_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			id = excluded.id,
			code_fingerprint = excluded.code_fingerprint,
			remember_me = excluded.remember_me,
			attempts = excluded.attempts,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at`,
		c.ID, c.UserID, c.CodeFingerprint, c.RememberMe, c.Attempts, c.IssuedAt, c.ExpiresAt,
	)
	return err
}

func (r *challengesRepo) GetByID(ctx context.Context, id string) (domain.PendingChallenge, error) {
	var c domain.PendingChallenge
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, code_fingerprint, remember_me, attempts, issued_at, expires_at
		FROM pending_challenges WHERE id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.CodeFingerprint, &c.RememberMe, &c.Attempts, &c.IssuedAt, &c.ExpiresAt)
	if err != nil {
		return domain.PendingChallenge{}, mapNotFound(err)
	}
	return c, nil
}

func (r *challengesRepo) IncrementAttempts(ctx context.Context, id string) (domain.PendingChallenge, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pending_challenges SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return domain.PendingChallenge{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.PendingChallenge{}, err
	}
	if affected == 0 {
		return domain.PendingChallenge{}, store.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *challengesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_challenges WHERE id = ?`, id)
	return err
}

func (r *challengesRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_challenges WHERE expires_at < CURRENT_TIMESTAMP`)
	return err
}
