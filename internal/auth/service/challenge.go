package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp/hotp"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/cryptox"
	"github.com/verdanthq/gatehouse/pkg/idx"
)

var (
	ErrNoPendingChallenge       = errors.New("no pending challenge")
	ErrChallengeExpired         = errors.New("challenge expired")
	ErrChallengeCodeMismatch    = errors.New("challenge code mismatch")
	ErrTooManyChallengeAttempts = errors.New("too many challenge attempts")
)

// ChallengeService issues and verifies the emailed one-time codes for the
// second authentication factor. At most one challenge is live per identity;
// issuing a new one supersedes the old.
type ChallengeService struct {
	Challenges store.Challenges
	Sender     NotificationSender

	TTL         time.Duration
	MaxAttempts int

	// Now overrides the clock in tests. Nil means time.Now UTC.
	Now func() time.Time
}

func (s *ChallengeService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// generateCode derives a six digit code from a throwaway random HOTP
// secret. The secret is discarded; only the code's fingerprint is stored.
func generateCode() (string, error) {
	var seed [20]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return "", fmt.Errorf("generate challenge seed: %w", err)
	}

	secret := base32.StdEncoding.EncodeToString(seed[:])
	return hotp.GenerateCode(secret, 0)
}

// Issue creates a pending challenge for the identity and dispatches the
// code to their email address. Returns the challenge handle the caller
// presents at verification time.
func (s *ChallengeService) Issue(ctx context.Context, ident domain.Identity, rememberMe bool) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	now := s.clock()
	challenge := domain.PendingChallenge{
		ID:              idx.New().String(),
		UserID:          ident.ID,
		CodeFingerprint: cryptox.FingerprintToken(code),
		RememberMe:      rememberMe,
		IssuedAt:        now,
		ExpiresAt:       now.Add(s.TTL),
	}

	if err := s.Challenges.Put(ctx, challenge); err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(s.TTL.Minutes()))
	if err := s.Sender.Send(ctx, ident.Email, "Your verification code", body); err != nil {
		// The challenge is unusable if the code never arrives.
		_ = s.Challenges.Delete(ctx, challenge.ID)
		return "", fmt.Errorf("dispatch challenge code: %w", err)
	}

	return challenge.ID, nil
}

// Verify checks the supplied code against the pending challenge. A
// mismatch leaves the challenge alive for retry until the attempt cap;
// success, expiry, and the cap all destroy it.
func (s *ChallengeService) Verify(ctx context.Context, challengeID, suppliedCode string) (domain.PendingChallenge, error) {
	challenge, err := s.Challenges.GetByID(ctx, challengeID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.PendingChallenge{}, ErrNoPendingChallenge
	}
	if err != nil {
		return domain.PendingChallenge{}, err
	}

	if challenge.Expired(s.clock()) {
		_ = s.Challenges.Delete(ctx, challenge.ID)
		return domain.PendingChallenge{}, ErrChallengeExpired
	}

	if !cryptox.FingerprintEqual(challenge.CodeFingerprint, suppliedCode) {
		updated, err := s.Challenges.IncrementAttempts(ctx, challenge.ID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.PendingChallenge{}, ErrNoPendingChallenge
		}
		if err != nil {
			return domain.PendingChallenge{}, err
		}

		if updated.Attempts >= s.MaxAttempts {
			_ = s.Challenges.Delete(ctx, challenge.ID)
			return domain.PendingChallenge{}, ErrTooManyChallengeAttempts
		}
		return domain.PendingChallenge{}, ErrChallengeCodeMismatch
	}

	if err := s.Challenges.Delete(ctx, challenge.ID); err != nil {
		return domain.PendingChallenge{}, fmt.Errorf("consume challenge: %w", err)
	}

	return challenge, nil
}
