package http

import (
	"encoding/json"
	"net/http"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/service"
	"github.com/verdanthq/gatehouse/pkg/authsdk"
	"github.com/verdanthq/gatehouse/pkg/httpx"
	"github.com/verdanthq/gatehouse/pkg/slogx"
)

// LoginHandler serves the password login and two-factor completion endpoints.
type LoginHandler struct {
	LoginService *service.LoginService
	Cookies      SessionCookie
}

// HandleLogin handles POST /v1/login
//
//	@Summary		Authenticate with email and password
//	@Description	Verifies captcha, credentials, and lockout state. On success the session
//	@Description	is set as an HTTP-only cookie. Accounts with two-factor enabled receive a
//	@Description	challenge ID instead and must call /v1/login/2fa with the emailed code.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Authenticated or two-factor pending"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request or captcha failure"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid email or password"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Account locked out"
//	@Router			/v1/login [post].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	outcome, err := h.LoginService.Login(ctx, service.LoginRequest{
		Email:         req.Email,
		Password:      req.Password,
		CaptchaToken:  req.CaptchaToken,
		RememberMe:    req.RememberMe,
		SourceAddress: httpx.IPKeyExtractor(r),
	})
	if err != nil {
		log.Error("login failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	h.writeOutcome(w, outcome)
}

// HandleTwoFactor handles POST /v1/login/2fa
//
//	@Summary		Complete a two-factor login
//	@Description	Redeems a pending challenge with the emailed verification code. A wrong
//	@Description	code leaves the challenge live for retry until the attempt cap destroys it.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorRequest	true	"Challenge ID and code"
//	@Success		200		{object}	authsdk.LoginResponse		"Authenticated"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Code invalid, expired, or challenge gone"
//	@Router			/v1/login/2fa [post].
func (h *LoginHandler) HandleTwoFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.TwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.ChallengeID == "" || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	outcome, err := h.LoginService.CompleteTwoFactor(ctx, req.ChallengeID, req.Code, httpx.IPKeyExtractor(r))
	if err != nil {
		log.Error("two-factor completion failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	h.writeOutcome(w, outcome)
}

// writeOutcome maps a login outcome onto the wire, setting the session
// cookie only when the outcome carries an established session.
func (h *LoginHandler) writeOutcome(w http.ResponseWriter, outcome domain.LoginOutcome) {
	switch outcome.Status {
	case domain.LoginAuthenticated:
		if err := h.Cookies.Set(w, outcome.UserID, *outcome.Session); err != nil {
			authsdk.ErrServerError.WriteError(w)
			return
		}
		expires := outcome.Session.ExpiresAt
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			Status:                 authsdk.LoginStatusAuthenticated,
			SessionExpiresAt:       &expires,
			PasswordChangeRequired: outcome.PasswordChangeRequired,
		})

	case domain.LoginTwoFactorPending:
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			Status:                 authsdk.LoginStatusTwoFactorPending,
			ChallengeID:            outcome.ChallengeID,
			PasswordChangeRequired: outcome.PasswordChangeRequired,
		})

	case domain.LoginLockedOut:
		authsdk.ErrLockedOut.WriteError(w)

	case domain.LoginRejected:
		switch outcome.Reason {
		case domain.ReasonCaptchaFailed:
			authsdk.ErrCaptchaFailed.WriteError(w)
		case domain.ReasonInvalidCredential:
			authsdk.ErrInvalidCredentials.WriteError(w)
		default:
			// Challenge rejections share one response so the endpoint leaks
			// nothing about which check failed.
			authsdk.ErrChallengeFailed.WriteError(w)
		}

	default:
		authsdk.ErrServerError.WriteError(w)
	}
}
