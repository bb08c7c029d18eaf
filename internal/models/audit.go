package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionApplicationCreate = "APPLICATION_CREATE"
	AuditActionApplicationUpdate = "APPLICATION_UPDATE"
	AuditActionApplicationDelete = "APPLICATION_DELETE"
	AuditActionCorrectionFlag    = "CORRECTION_FLAG"
	AuditActionCorrectionResolve = "CORRECTION_RESOLVE"
	AuditActionCorrectionSubmit  = "CORRECTION_SUBMIT"
	AuditActionApplicationExport = "APPLICATION_EXPORT"
	AuditActionAuditPurge        = "AUDIT_PURGE"
)

// AuditLog represents an audit trail record. Rows are append-only; the only
// deletion path is the superadmin purge scoped to one record.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	TableName string    `db:"table_name" json:"table_name"`
	RecordID  *string   `db:"record_id" json:"record_id,omitempty"`
	OldValues []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
