package repo

import (
	"context"
	"database/sql"
	"fmt"
	"template-foundry/internal/domain"
)

type AuditRepo interface {
	Append(ctx context.Context, tx *sql.Tx, entry *domain.AuditEntry) error
	CountByType(ctx context.Context, eventType string) (int, error)
}

type auditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) AuditRepo {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, tx *sql.Tx, entry *domain.AuditEntry) error {
	query := `INSERT INTO audit_logs (id, event_type, severity, message, correlation_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.ExecContext(
		ctx, query,
		entry.ID, entry.EventType, entry.Severity, entry.Message, entry.CorrelationID, entry.ActorID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

func (r *auditRepo) CountByType(ctx context.Context, eventType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE event_type = $1", eventType).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
