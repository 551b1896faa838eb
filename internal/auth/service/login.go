package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/idx"
	"github.com/verdanthq/gatehouse/pkg/slogx"
)

// ErrEmailTaken reports a registration against an existing address.
var ErrEmailTaken = errors.New("email already registered")

// LoginRequest carries one login attempt.
type LoginRequest struct {
	Email         string
	Password      string
	CaptchaToken  string
	RememberMe    bool
	SourceAddress string
}

// LoginService composes the captcha gate, lockout guard, credential check,
// session registry, and second-factor challenge into the end-to-end login
// protocol. Expected rejections come back as outcomes, never errors; an
// error from any method is an infrastructure failure.
type LoginService struct {
	Store   store.Store
	Hasher  PasswordHasher
	Captcha CaptchaVerifier

	Lockout    *LockoutGuard
	Sessions   *SessionRegistry
	Challenges *ChallengeService
	Audit      *AuditRecorder

	MaxPasswordAge time.Duration

	// Now overrides the clock in tests. Nil means time.Now UTC.
	Now func() time.Time
}

func (s *LoginService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Login runs the login state machine: captcha, identity resolution,
// lockout gate, credential check, then session establishment and the
// optional second factor.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (domain.LoginOutcome, error) {
	log := slogx.FromContext(ctx)

	// Captcha precedes identity resolution, so its failure is never
	// audited against a user. Verifier errors fail closed.
	ok, score, err := s.Captcha.Verify(ctx, req.CaptchaToken)
	if err != nil {
		log.Warn("captcha verification unavailable, failing closed", "error", err)
		return domain.LoginOutcome{Status: domain.LoginRejected, Reason: domain.ReasonCaptchaFailed}, nil
	}
	if !ok {
		log.Info("captcha rejected", "score", score)
		return domain.LoginOutcome{Status: domain.LoginRejected, Reason: domain.ReasonCaptchaFailed}, nil
	}

	ident, err := s.Store.Identities().GetByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		// Indistinguishable from a wrong password to the caller.
		return domain.LoginOutcome{Status: domain.LoginRejected, Reason: domain.ReasonInvalidCredential}, nil
	}
	if err != nil {
		return domain.LoginOutcome{}, fmt.Errorf("resolve identity: %w", err)
	}

	locked, lockedUntil, err := s.Lockout.CheckLocked(ctx, ident.ID)
	if err != nil {
		return domain.LoginOutcome{}, fmt.Errorf("check lockout: %w", err)
	}
	if locked {
		s.Audit.Record(ident.ID, domain.AuditLoginFailedLockedOut, req.SourceAddress)
		return domain.LoginOutcome{Status: domain.LoginLockedOut, LockedUntil: lockedUntil}, nil
	}

	if !s.Hasher.Verify(req.Password, ident.PasswordHash) {
		nowLocked, _, err := s.Lockout.RecordFailure(ctx, ident.ID)
		if err != nil {
			return domain.LoginOutcome{}, fmt.Errorf("record login failure: %w", err)
		}

		if nowLocked {
			s.Audit.Record(ident.ID, domain.AuditLoginFailedLockedOut, req.SourceAddress)
		} else {
			s.Audit.Record(ident.ID, domain.AuditLoginFailedInvalidCredential, req.SourceAddress)
		}
		return domain.LoginOutcome{Status: domain.LoginRejected, Reason: domain.ReasonInvalidCredential}, nil
	}

	// Establishing the session resets the failure counter atomically.
	session, err := s.Sessions.Establish(ctx, ident.ID, req.RememberMe)
	if err != nil {
		return domain.LoginOutcome{}, fmt.Errorf("establish session: %w", err)
	}
	s.Audit.Record(ident.ID, domain.AuditLoginSuccess, req.SourceAddress)

	changeRequired := ident.PasswordExpired(s.clock(), s.MaxPasswordAge)

	if ident.TwoFactorEnabled {
		challengeID, err := s.Challenges.Issue(ctx, ident, req.RememberMe)
		if err != nil {
			return domain.LoginOutcome{}, fmt.Errorf("issue challenge: %w", err)
		}
		return domain.LoginOutcome{
			Status:                 domain.LoginTwoFactorPending,
			ChallengeID:            challengeID,
			PasswordChangeRequired: changeRequired,
		}, nil
	}

	return domain.LoginOutcome{
		Status:                 domain.LoginAuthenticated,
		UserID:                 ident.ID,
		Session:                &session,
		PasswordChangeRequired: changeRequired,
	}, nil
}

// CompleteTwoFactor verifies the challenge code and finalizes the login by
// rotating in the definitive session. Mismatches leave the challenge alive
// for retry until its attempt cap.
func (s *LoginService) CompleteTwoFactor(ctx context.Context, challengeID, code, sourceAddress string) (domain.LoginOutcome, error) {
	challenge, err := s.Challenges.Verify(ctx, challengeID, code)
	switch {
	case errors.Is(err, ErrNoPendingChallenge):
		return domain.LoginOutcome{Status: domain.LoginRejected, Reason: domain.ReasonNoPendingChallenge}, nil
	case errors.Is(err, ErrChallengeExpired):
		return domain.LoginOutcome{Status: domain.LoginRejected, Reason: domain.ReasonChallengeExpired}, nil
	case errors.Is(err, ErrChallengeCodeMismatch):
		return domain.LoginOutcome{Status: domain.LoginRejected, Reason: domain.ReasonCodeMismatch}, nil
	case errors.Is(err, ErrTooManyChallengeAttempts):
		return domain.LoginOutcome{Status: domain.LoginRejected, Reason: domain.ReasonTooManyAttempts}, nil
	case err != nil:
		return domain.LoginOutcome{}, fmt.Errorf("verify challenge: %w", err)
	}

	session, err := s.Sessions.Establish(ctx, challenge.UserID, challenge.RememberMe)
	if err != nil {
		return domain.LoginOutcome{}, fmt.Errorf("finalize session: %w", err)
	}

	return domain.LoginOutcome{
		Status:  domain.LoginAuthenticated,
		UserID:  challenge.UserID,
		Session: &session,
	}, nil
}

// ValidateSession reports whether the presented token is still the single
// authorized session. A live-but-different session is a conflict: the
// caller is force signed out here and the conflict is audited.
func (s *LoginService) ValidateSession(ctx context.Context, userID, presentedToken, sourceAddress string) (bool, error) {
	ok, err := s.Sessions.Validate(ctx, userID, presentedToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("validate session: %w", err)
	}
	if ok {
		return true, nil
	}

	ident, err := s.Store.Identities().GetByID(ctx, userID)
	if err == nil && ident.HasLiveSession(s.clock()) {
		// Someone else holds the session now. Sign this caller out.
		s.Audit.Record(userID, domain.AuditLoggedOutSessionConflict, sourceAddress)
	}
	return false, nil
}

// Logout invalidates the identity's active session.
func (s *LoginService) Logout(ctx context.Context, userID, sourceAddress string) error {
	if err := s.Sessions.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	s.Audit.Record(userID, domain.AuditLogout, sourceAddress)
	return nil
}

// Register creates a new identity. The initial password counts as the
// first change so the age rules start from now.
func (s *LoginService) Register(ctx context.Context, email, displayName, password string) (domain.Identity, error) {
	if err := ValidateComplexity(password); err != nil {
		return domain.Identity{}, err
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock()
	ident := domain.Identity{
		ID:                   idx.New().String(),
		Email:                strings.TrimSpace(email),
		DisplayName:          displayName,
		PasswordHash:         hash,
		LastPasswordChangeAt: &now,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.Store.Identities().Create(ctx, ident); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Identity{}, ErrEmailTaken
		}
		return domain.Identity{}, fmt.Errorf("create identity: %w", err)
	}

	return ident, nil
}
