package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/cryptox"
	"github.com/verdanthq/gatehouse/pkg/idx"
)

// MinPasswordLength is the floor for new passwords, combined with the
// upper/lower/digit/special class requirements.
const MinPasswordLength = 12

var (
	ErrCurrentPasswordMismatch = errors.New("current password mismatch")
	ErrPasswordReused          = errors.New("password reuse rejected")
	ErrPasswordTooYoung        = errors.New("password changed too recently")
	ErrWeakPassword            = errors.New("password does not meet complexity requirements")
	ErrInvalidResetToken       = errors.New("invalid or expired reset token")
)

// ChangeResult reports a successful password change. WasExpired flags that
// the superseded password had outlived MaxPasswordAge; the change itself
// is never blocked by expiry.
type ChangeResult struct {
	WasExpired bool
}

// PasswordService enforces age, reuse, and complexity rules on password
// changes and runs the email reset flow. History rotation and the hash
// swap happen in one atomic update per identity.
type PasswordService struct {
	Store  store.Store
	Hasher PasswordHasher
	Sender NotificationSender
	Audit  *AuditRecorder

	MinPasswordAge time.Duration
	MaxPasswordAge time.Duration
	ResetTokenTTL  time.Duration

	// ResetBaseURL prefixes the emailed reset link, e.g.
	// "https://example.com/reset-password?token=".
	ResetBaseURL string

	// Now overrides the clock in tests. Nil means time.Now UTC.
	Now func() time.Time
}

func (s *PasswordService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ValidateComplexity checks the length and character-class requirements.
func ValidateComplexity(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	if !upper || !lower || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}

// isReused detects reuse by hash verification against the current hash and
// both history entries. Byte comparison would miss matches because salts
// differ between hashes of the same plaintext.
func (s *PasswordService) isReused(ident *domain.Identity, newPassword string) bool {
	if s.Hasher.Verify(newPassword, ident.PasswordHash) {
		return true
	}
	for _, oldHash := range ident.PasswordHistory() {
		if s.Hasher.Verify(newPassword, oldHash) {
			return true
		}
	}
	return false
}

// rotate pushes the current hash into history and installs the new one.
func (s *PasswordService) rotate(ident *domain.Identity, newHash string, now time.Time) {
	ident.PushPasswordHistory(ident.PasswordHash)
	ident.PasswordHash = newHash
	ident.LastPasswordChangeAt = &now
}

// ChangePassword verifies the current password, applies the policy rules,
// and rotates the hash and history as one atomic update.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, sourceAddress string) (ChangeResult, error) {
	if err := ValidateComplexity(newPassword); err != nil {
		return ChangeResult{}, err
	}

	now := s.clock()

	newHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return ChangeResult{}, fmt.Errorf("hash password: %w", err)
	}

	var result ChangeResult
	_, err = updateIdentity(ctx, s.Store.Identities(), userID, func(ident *domain.Identity) error {
		if !s.Hasher.Verify(currentPassword, ident.PasswordHash) {
			return ErrCurrentPasswordMismatch
		}

		if s.MinPasswordAge > 0 && ident.LastPasswordChangeAt != nil &&
			now.Before(ident.LastPasswordChangeAt.Add(s.MinPasswordAge)) {
			return ErrPasswordTooYoung
		}

		// Expiry steers the user here; it must never stop the change.
		result.WasExpired = ident.PasswordExpired(now, s.MaxPasswordAge)

		if s.isReused(ident, newPassword) {
			return ErrPasswordReused
		}

		s.rotate(ident, newHash, now)
		return nil
	})
	if err != nil {
		return ChangeResult{}, err
	}

	s.Audit.Record(userID, domain.AuditPasswordChanged, sourceAddress)
	return result, nil
}

// ForgotPassword issues a single-use reset token and emails it as a link.
// The response is identical whether or not the address is known, so the
// endpoint cannot be used to enumerate accounts.
func (s *PasswordService) ForgotPassword(ctx context.Context, email, sourceAddress string) error {
	ident, err := s.Store.Identities().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := s.clock()
	record := domain.ResetToken{
		ID:               idx.New().String(),
		UserID:           ident.ID,
		TokenFingerprint: cryptox.FingerprintToken(token),
		ExpiresAt:        now.Add(s.ResetTokenTTL),
		CreatedAt:        now,
	}
	if err := s.Store.ResetTokens().Create(ctx, record); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	body := fmt.Sprintf("Reset your password using this link: %s%s\nThe link expires in %d minutes.",
		s.ResetBaseURL, token, int(s.ResetTokenTTL.Minutes()))
	if err := s.Sender.Send(ctx, ident.Email, "Password reset", body); err != nil {
		return fmt.Errorf("dispatch reset link: %w", err)
	}

	return nil
}

// ResetPassword redeems a reset token. The token is the proof of identity,
// so the current-password check is skipped; reuse and complexity rules
// still apply. Consuming the token, rotating the hash, clearing lockout
// state, and revoking the active session commit together.
func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword, sourceAddress string) error {
	if err := ValidateComplexity(newPassword); err != nil {
		return err
	}

	now := s.clock()

	newHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var userID string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.ResetTokens().GetByFingerprint(ctx, cryptox.FingerprintToken(token))
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		if err != nil {
			return err
		}
		if !record.Usable(now) {
			return ErrInvalidResetToken
		}

		ident, err := tx.Identities().GetByID(ctx, record.UserID)
		if err != nil {
			return err
		}

		if s.isReused(&ident, newPassword) {
			return ErrPasswordReused
		}

		s.rotate(&ident, newHash, now)
		ident.FailedAccessCount = 0
		ident.LockoutEndAt = nil
		ident.ActiveSessionID = nil
		ident.SessionExpiresAt = nil

		if err := tx.Identities().Update(ctx, ident, ident.Version); err != nil {
			return err
		}
		if err := tx.ResetTokens().MarkUsed(ctx, record.ID); err != nil {
			return err
		}

		userID = record.UserID
		return nil
	})
	if err != nil {
		return err
	}

	s.Audit.Record(userID, domain.AuditPasswordResetSuccess, sourceAddress)
	return nil
}
