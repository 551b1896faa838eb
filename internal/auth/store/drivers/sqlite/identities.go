package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
)

type identitiesRepo struct {
	db dbtx
}

const identityColumns = `id, email, display_name, password_hash,
	password_prev1, password_prev2, last_password_change_at,
	failed_access_count, lockout_end_at, two_factor_enabled,
	active_session_id, session_expires_at, version, created_at, updated_at`

func (r *identitiesRepo) scan(row *sql.Row) (domain.Identity, error) {
	var (
		i              domain.Identity
		prev1, prev2   sql.NullString
		lastChange     sql.NullTime
		lockoutEnd     sql.NullTime
		sessionID      sql.NullString
		sessionExpires sql.NullTime
	)

	err := row.Scan(
		&i.ID, &i.Email, &i.DisplayName, &i.PasswordHash,
		&prev1, &prev2, &lastChange,
		&i.FailedAccessCount, &lockoutEnd, &i.TwoFactorEnabled,
		&sessionID, &sessionExpires, &i.Version, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}

	i.PasswordPrev1 = mapNullStringPtr(prev1)
	i.PasswordPrev2 = mapNullStringPtr(prev2)
	i.LastPasswordChangeAt = mapNullTimePtr(lastChange)
	i.LockoutEndAt = mapNullTimePtr(lockoutEnd)
	i.ActiveSessionID = mapNullStringPtr(sessionID)
	i.SessionExpiresAt = mapNullTimePtr(sessionExpires)
	return i, nil
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return r.scan(row)
}

func (r *identitiesRepo) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	return r.scan(row)
}

func (r *identitiesRepo) Create(ctx context.Context, i domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (
			id, email, display_name, password_hash,
			password_prev1, password_prev2, last_password_change_at,
			failed_access_count, lockout_end_at, two_factor_enabled,
			active_session_id, session_expires_at, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.Email, i.DisplayName, i.PasswordHash,
		mapOptionalString(i.PasswordPrev1), mapOptionalString(i.PasswordPrev2),
		mapOptionalTime(i.LastPasswordChangeAt),
		i.FailedAccessCount, mapOptionalTime(i.LockoutEndAt), i.TwoFactorEnabled,
		mapOptionalString(i.ActiveSessionID), mapOptionalTime(i.SessionExpiresAt),
		i.Version, i.CreatedAt, i.UpdatedAt,
	)
	return mapConstraint(err)
}

// Update writes the full mutable state guarded by the version column. A
// stale expectedVersion matches zero rows and surfaces as ErrConflict so
// the caller can re-read and retry.
func (r *identitiesRepo) Update(ctx context.Context, i domain.Identity, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE identities SET
			email = ?, display_name = ?, password_hash = ?,
			password_prev1 = ?, password_prev2 = ?, last_password_change_at = ?,
			failed_access_count = ?, lockout_end_at = ?, two_factor_enabled = ?,
			active_session_id = ?, session_expires_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		i.Email, i.DisplayName, i.PasswordHash,
		mapOptionalString(i.PasswordPrev1), mapOptionalString(i.PasswordPrev2),
		mapOptionalTime(i.LastPasswordChangeAt),
		i.FailedAccessCount, mapOptionalTime(i.LockoutEndAt), i.TwoFactorEnabled,
		mapOptionalString(i.ActiveSessionID), mapOptionalTime(i.SessionExpiresAt),
		time.Now().UTC(),
		i.ID, expectedVersion,
	)
	if err != nil {
		return mapConstraint(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *identitiesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	return err
}
