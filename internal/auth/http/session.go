package http

import (
	"errors"
	"net/http"

	"github.com/verdanthq/gatehouse/internal/auth/service"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/authsdk"
	"github.com/verdanthq/gatehouse/pkg/httpx"
	"github.com/verdanthq/gatehouse/pkg/slogx"
)

// SessionHandler serves the current-session and logout endpoints. Both sit
// behind SessionMiddleware.
type SessionHandler struct {
	LoginService *service.LoginService
	Store        store.Store
	Cookies      SessionCookie
}

// HandleSession handles GET /v1/session
//
//	@Summary		Describe the current session
//	@Description	Returns the identity behind the session cookie. A superseded or expired
//	@Description	session fails the middleware with 401 before reaching here.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	authsdk.SessionResponse	"Current identity"
//	@Failure		401	{object}	authsdk.ErrorResponse	"No valid session"
//	@Router			/v1/session [get].
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	ident, err := h.Store.Identities().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Cookies.Clear(w)
			authsdk.ErrInvalidSession.WriteError(w)
			return
		}
		log.Error("failed to load identity", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionResponse{
		UserID:      ident.ID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
	})
}

// HandleLogout handles POST /v1/logout
//
//	@Summary		End the current session
//	@Description	Invalidates the active session and clears the cookie. Logging out is
//	@Description	idempotent.
//	@Tags			Session
//	@Success		204	"Session ended"
//	@Failure		401	{object}	authsdk.ErrorResponse	"No valid session"
//	@Router			/v1/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if err := h.LoginService.Logout(ctx, userID, httpx.IPKeyExtractor(r)); err != nil {
		log.Error("logout failed", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	h.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
