package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
)

// SessionCookieName is the cookie carrying the signed session envelope.
const SessionCookieName = "gatehouse_session"

var errBadSessionCookie = errors.New("session cookie missing or invalid")

// sessionClaims binds the user ID and the opaque session token together in
// one signed value. The server still verifies the token against the stored
// fingerprint on every request; the signature only stops cookie tampering
// from reaching the store.
type sessionClaims struct {
	SessionToken string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionCookie signs and parses the session cookie with an HMAC key.
type SessionCookie struct {
	Key    []byte
	Secure bool
}

// Set writes the session cookie for an established session.
func (sc SessionCookie) Set(w http.ResponseWriter, userID string, session domain.Session) error {
	claims := sessionClaims{
		SessionToken: session.Token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sc.Key)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Remember-me sessions get a persistent cookie; everything else stays a
	// browser-session cookie.
	if session.RememberMe {
		cookie.Expires = session.ExpiresAt
	}

	http.SetCookie(w, cookie)
	return nil
}

// Clear expires the session cookie.
func (sc SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Parse extracts and verifies the cookie, returning the user ID and the
// opaque session token.
func (sc SessionCookie) Parse(r *http.Request) (userID, token string, err error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", "", errBadSessionCookie
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadSessionCookie
		}
		return sc.Key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", "", errBadSessionCookie
	}
	if claims.Subject == "" || claims.SessionToken == "" {
		return "", "", errBadSessionCookie
	}

	return claims.Subject, claims.SessionToken, nil
}
