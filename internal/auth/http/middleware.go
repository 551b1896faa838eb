package http

import (
	"net/http"

	"github.com/verdanthq/gatehouse/internal/auth/service"
	"github.com/verdanthq/gatehouse/pkg/authsdk"
	"github.com/verdanthq/gatehouse/pkg/httpx"
	"github.com/verdanthq/gatehouse/pkg/slogx"
)

// SessionMiddleware verifies the session cookie against the stored session
// fingerprint and injects the user and session IDs into the request context.
// A cookie that names a superseded session comes back invalid here, which is
// how a stale login discovers it has been signed out.
func SessionMiddleware(login *service.LoginService, cookies SessionCookie) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			userID, token, err := cookies.Parse(r)
			if err != nil {
				authsdk.ErrInvalidSession.WriteError(w)
				return
			}

			ok, err := login.ValidateSession(ctx, userID, token, httpx.IPKeyExtractor(r))
			if err != nil {
				log.Error("session validation failed", "err", err)
				authsdk.ErrServerError.WriteError(w)
				return
			}
			if !ok {
				cookies.Clear(w)
				authsdk.ErrInvalidSession.WriteError(w)
				return
			}

			ctx = httpx.ContextWithSession(ctx, userID, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
