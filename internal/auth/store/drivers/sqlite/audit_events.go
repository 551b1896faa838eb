package sqlite

import (
	"context"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
)

type auditEventsRepo struct {
	db dbtx
}

func (r *auditEventsRepo) Append(ctx context.Context, e domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, user_id, action, source_address, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Action), e.SourceAddress, e.OccurredAt,
	)
	return err
}

func (r *auditEventsRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, source_address, occurred_at
		FROM audit_events WHERE user_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			e      domain.AuditEvent
			action string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &action, &e.SourceAddress, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Action = domain.AuditAction(action)
		events = append(events, e)
	}
	return events, rows.Err()
}
