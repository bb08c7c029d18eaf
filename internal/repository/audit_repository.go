package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/balikbayani/portal-api/internal/models"
)

const auditColumns = `id, user_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at`

// AuditLogRepository appends audit trail records. Rows are immutable; the
// only deletion path is DeleteByRecord, reserved for superadmins.
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository constructs the repository.
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create appends one audit record.
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO audit_logs (id, user_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :table_name, :record_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByRecord returns the audit trail for one record, oldest first.
func (r *AuditLogRepository) ListByRecord(ctx context.Context, tableName, recordID string) ([]models.AuditLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE table_name = $1 AND record_id = $2 ORDER BY created_at ASC`, auditColumns)
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, tableName, recordID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// DeleteByRecord irreversibly removes all entries for one record.
func (r *AuditLogRepository) DeleteByRecord(ctx context.Context, tableName, recordID string) (int64, error) {
	const query = `DELETE FROM audit_logs WHERE table_name = $1 AND record_id = $2`
	res, err := r.db.ExecContext(ctx, query, tableName, recordID)
	if err != nil {
		return 0, fmt.Errorf("delete audit logs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete audit logs: %w", err)
	}
	return affected, nil
}
