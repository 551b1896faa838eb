package http

import (
	"net/http"
	"strconv"

	"github.com/verdanthq/gatehouse/internal/auth/service"
	"github.com/verdanthq/gatehouse/pkg/authsdk"
	"github.com/verdanthq/gatehouse/pkg/httpx"
	"github.com/verdanthq/gatehouse/pkg/slogx"
)

const maxAuditPageSize = 100

// AuditHandler lists the current user's security events.
type AuditHandler struct {
	Audit *service.AuditRecorder
}

// ServeHTTP handles GET /v1/audit
//
//	@Summary		List recent security events
//	@Description	Returns the caller's audit trail, newest first. Supports a limit query
//	@Description	parameter capped at 100.
//	@Tags			Audit
//	@Produce		json
//	@Param			limit	query		int						false	"Maximum events to return"
//	@Success		200		{object}	authsdk.AuditResponse	"Security events"
//	@Failure		401		{object}	authsdk.ErrorResponse	"No valid session"
//	@Router			/v1/audit [get].
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		limit = min(n, maxAuditPageSize)
	}

	userID := httpx.UserIDFromContext(ctx)
	events, err := h.Audit.RecentEvents(ctx, userID, limit)
	if err != nil {
		log.Error("failed to list audit events", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	entries := make([]authsdk.AuditEntry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, authsdk.AuditEntry{
			Action:        string(ev.Action),
			SourceAddress: ev.SourceAddress,
			OccurredAt:    ev.OccurredAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuditResponse{Events: entries})
}
