package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balikbayani/portal-api/internal/models"
)

func newAuditMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAuditLogRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newAuditMock(t)
	defer cleanup()
	repo := NewAuditLogRepository(db)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "staff-1"
	recordID := "app-1"
	log := &models.AuditLog{
		UserID:    &userID,
		Action:    models.AuditActionCorrectionFlag,
		TableName: "applications",
		RecordID:  &recordID,
		NewValues: []byte(`{"fields":["first_name"]}`),
	}
	err := repo.Create(context.Background(), log)
	require.NoError(t, err)
	assert.NotEmpty(t, log.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogRepositoryListByRecord(t *testing.T) {
	db, mock, cleanup := newAuditMock(t)
	defer cleanup()
	repo := NewAuditLogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "table_name", "record_id", "old_values", "new_values", "ip_address", "user_agent", "created_at"}).
		AddRow("a1", nil, models.AuditActionCorrectionFlag, "applications", "app-1", nil, []byte(`{}`), "1.2.3.4", "test", time.Now())
	mock.ExpectQuery(`SELECT .+ FROM audit_logs WHERE table_name = \$1 AND record_id = \$2 ORDER BY created_at ASC`).
		WithArgs("applications", "app-1").
		WillReturnRows(rows)

	logs, err := repo.ListByRecord(context.Background(), "applications", "app-1")
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogRepositoryDeleteByRecord(t *testing.T) {
	db, mock, cleanup := newAuditMock(t)
	defer cleanup()
	repo := NewAuditLogRepository(db)

	mock.ExpectExec(`DELETE FROM audit_logs WHERE table_name = \$1 AND record_id = \$2`).
		WithArgs("applications", "app-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := repo.DeleteByRecord(context.Background(), "applications", "app-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
