package store

import (
	"context"
	"errors"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by versioned updates when the stored record
	// changed underneath the caller. Callers re-read and retry.
	ErrConflict = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite, and
// redis for the transient challenge repository) implement this. It exposes
// sub-repositories to keep concerns tidy and testable.
type Store interface {
	Identities() Identities
	Challenges() Challenges
	ResetTokens() ResetTokens
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// GetByID returns an identity by id.
	GetByID(ctx context.Context, id string) (domain.Identity, error)

	// GetByEmail resolves an identity during login.
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)

	// Create inserts a new identity (id is provided by the app via ULID).
	Create(ctx context.Context, identity domain.Identity) error

	// Update persists the full mutable state of the identity if and only
	// if the stored version still equals expectedVersion, bumping the
	// version on success. Returns ErrConflict on a stale version.
	Update(ctx context.Context, identity domain.Identity, expectedVersion int64) error

	// Delete removes an identity and its dependent rows.
	Delete(ctx context.Context, id string) error
}

type Challenges interface {
	// Put stores a pending challenge, superseding any prior challenge for
	// the same user (at most one live challenge per identity).
	Put(ctx context.Context, challenge domain.PendingChallenge) error

	// GetByID fetches a challenge by its handle.
	GetByID(ctx context.Context, id string) (domain.PendingChallenge, error)

	// IncrementAttempts bumps the failed-verification counter and returns
	// the updated challenge.
	IncrementAttempts(ctx context.Context, id string) (domain.PendingChallenge, error)

	// Delete destroys a challenge (successful verify, expiry, or cap).
	Delete(ctx context.Context, id string) error

	// DeleteExpired reclaims long-idle pending challenges (housekeeping).
	DeleteExpired(ctx context.Context) error
}

type ResetTokens interface {
	// Create writes a new reset token record (fingerprint, never the token).
	Create(ctx context.Context, token domain.ResetToken) error

	// GetByFingerprint fetches a token by the fingerprint of its opaque value.
	GetByFingerprint(ctx context.Context, fingerprint string) (domain.ResetToken, error)

	// MarkUsed consumes a token so it cannot be redeemed twice.
	MarkUsed(ctx context.Context, id string) error

	// DeleteExpired removes expired and consumed tokens (housekeeping).
	DeleteExpired(ctx context.Context) error
}

type AuditEvents interface {
	// Append writes one audit event. The trail is append-only; there is no
	// update or delete.
	Append(ctx context.Context, event domain.AuditEvent) error

	// ListByUser returns the most recent events for a user, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error)
}
