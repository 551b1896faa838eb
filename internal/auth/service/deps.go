package service

import "context"

// PasswordHasher is the pluggable one-way hash used for credentials.
// Implemented by cryptox.Hasher.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encodedHash string) bool
}

// CaptchaVerifier checks a bot-detection token. A non-nil error means no
// verdict could be obtained; callers treat that as failure (fail closed).
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (ok bool, score float64, err error)
}

// NotificationSender delivers out-of-band messages (challenge codes,
// reset links). Implemented by the notify package.
type NotificationSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
