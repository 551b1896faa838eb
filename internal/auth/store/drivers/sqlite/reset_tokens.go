package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
)

type resetTokensRepo struct {
	db dbtx
}

func (r *resetTokensRepo) Create(ctx context.Context, t domain.ResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reset_tokens (id, user_id, token_fingerprint, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenFingerprint, t.ExpiresAt, mapOptionalTime(t.UsedAt), t.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *resetTokensRepo) GetByFingerprint(ctx context.Context, fingerprint string) (domain.ResetToken, error) {
	var (
		t      domain.ResetToken
		usedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_fingerprint, expires_at, used_at, created_at
		FROM reset_tokens WHERE token_fingerprint = ?`, fingerprint,
	).Scan(&t.ID, &t.UserID, &t.TokenFingerprint, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		return domain.ResetToken{}, mapNotFound(err)
	}
	t.UsedAt = mapNullTimePtr(usedAt)
	return t, nil
}

func (r *resetTokensRepo) MarkUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reset_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		time.Now().UTC(), id)
	return err
}

func (r *resetTokensRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reset_tokens WHERE expires_at < CURRENT_TIMESTAMP OR used_at IS NOT NULL`)
	return err
}
