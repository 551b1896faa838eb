package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/verdanthq/gatehouse/internal/auth/service"
	"github.com/verdanthq/gatehouse/pkg/authsdk"
	"github.com/verdanthq/gatehouse/pkg/httpx"
	"github.com/verdanthq/gatehouse/pkg/slogx"
)

// RegisterHandler creates new accounts.
type RegisterHandler struct {
	LoginService *service.LoginService
}

// ServeHTTP handles POST /v1/register
//
//	@Summary		Register a new account
//	@Description	Creates an identity with the given email and password. The password must
//	@Description	meet the complexity policy.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"New account details"
//	@Success		201		{object}	authsdk.RegisterResponse	"Account created"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Malformed request or weak password"
//	@Failure		409		{object}	authsdk.ErrorResponse		"Email already registered"
//	@Router			/v1/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	ident, err := h.LoginService.Register(ctx, req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			authsdk.ErrWeakPassword.WriteError(w)
		case errors.Is(err, service.ErrEmailTaken):
			authsdk.ErrEmailTaken.WriteError(w)
		default:
			log.Error("registration failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		UserID: ident.ID,
		Email:  ident.Email,
	})
}
