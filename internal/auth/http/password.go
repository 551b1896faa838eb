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

// PasswordHandler serves the password change, forgot, and reset endpoints.
type PasswordHandler struct {
	PasswordService *service.PasswordService
	Cookies         SessionCookie
}

// HandleChange handles POST /v1/password/change
//
//	@Summary		Change the current user's password
//	@Description	Rotates the password after verifying the current one. The new password
//	@Description	must meet the complexity policy and must not match a recently used one.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		200		{object}	authsdk.ChangePasswordResponse	"Password changed"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Policy violation"
//	@Failure		401		{object}	authsdk.ErrorResponse			"No valid session"
//	@Router			/v1/password/change [post].
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	userID := httpx.UserIDFromContext(ctx)
	result, err := h.PasswordService.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword, httpx.IPKeyExtractor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCurrentPasswordMismatch):
			authsdk.ErrCurrentPasswordMismatch.WriteError(w)
		case errors.Is(err, service.ErrWeakPassword):
			authsdk.ErrWeakPassword.WriteError(w)
		case errors.Is(err, service.ErrPasswordReused):
			authsdk.ErrPasswordReused.WriteError(w)
		case errors.Is(err, service.ErrPasswordTooYoung):
			authsdk.ErrPasswordTooYoung.WriteError(w)
		default:
			log.Error("password change failed", "user_id", userID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ChangePasswordResponse{
		WasExpired: result.WasExpired,
	})
}

// HandleForgot handles POST /v1/password/forgot
//
//	@Summary		Request a password reset email
//	@Description	Always answers 202 so the endpoint cannot be used to probe which emails
//	@Description	have accounts.
//	@Tags			Password
//	@Accept			json
//	@Param			request	body	authsdk.ForgotPasswordRequest	true	"Account email"
//	@Success		202		"Reset email sent if the account exists"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request"
//	@Router			/v1/password/forgot [post].
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.PasswordService.ForgotPassword(ctx, req.Email, httpx.IPKeyExtractor(r)); err != nil {
		log.Error("forgot password failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleReset handles POST /v1/password/reset
//
//	@Summary		Reset a password with an emailed token
//	@Description	Redeems a single-use reset token for a new password. A successful reset
//	@Description	also revokes any active session.
//	@Tags			Password
//	@Accept			json
//	@Param			request	body	authsdk.ResetPasswordRequest	true	"Reset token and new password"
//	@Success		204		"Password reset"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Token invalid or policy violation"
//	@Router			/v1/password/reset [post].
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.PasswordService.ResetPassword(ctx, req.Token, req.NewPassword, httpx.IPKeyExtractor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResetToken):
			authsdk.ErrInvalidResetToken.WriteError(w)
		case errors.Is(err, service.ErrWeakPassword):
			authsdk.ErrWeakPassword.WriteError(w)
		case errors.Is(err, service.ErrPasswordReused):
			authsdk.ErrPasswordReused.WriteError(w)
		default:
			log.Error("password reset failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
