package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
)

type auditLogStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByRecord(ctx context.Context, tableName, recordID string) ([]models.AuditLog, error)
	DeleteByRecord(ctx context.Context, tableName, recordID string) (int64, error)
}

// AuditService appends and queries the immutable audit trail.
type AuditService struct {
	repo   auditLogStore
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditLogStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record appends an audit entry. A write failure never propagates to the
// caller; the primary operation the record accompanies must not be rolled
// back because its audit trail could not be written.
func (s *AuditService) Record(ctx context.Context, log *models.AuditLog) {
	if s == nil || s.repo == nil || log == nil {
		return
	}
	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log",
			zap.String("action", log.Action),
			zap.String("table", log.TableName),
			zap.Error(err))
	}
}

// ListForRecord returns the audit trail for one record, oldest first.
func (s *AuditService) ListForRecord(ctx context.Context, tableName, recordID string, actor *models.JWTClaims) ([]models.AuditLog, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}
	if tableName == "" || recordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "table_name and record_id are required")
	}
	logs, err := s.repo.ListByRecord(ctx, tableName, recordID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

// PurgeRecord irreversibly removes all audit entries for one record. This is
// the only deletion path and is restricted to superadmins.
func (s *AuditService) PurgeRecord(ctx context.Context, tableName, recordID string, actor *models.JWTClaims) (int64, error) {
	if actor == nil {
		return 0, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSuperAdmin {
		return 0, appErrors.Clone(appErrors.ErrForbidden, "only superadmins may purge audit logs")
	}
	if tableName == "" || recordID == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "table_name and record_id are required")
	}
	deleted, err := s.repo.DeleteByRecord(ctx, tableName, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge audit logs")
	}

	s.Record(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionAuditPurge,
		TableName: tableName,
		RecordID:  &recordID,
		IPAddress: "system",
		UserAgent: "audit-service",
	})
	return deleted, nil
}
