package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balikbayani/portal-api/internal/models"
)

func newDocumentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDocumentRepositoryFindLatestByTypeNotFound(t *testing.T) {
	db, mock, cleanup := newDocumentMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM documents\s+WHERE application_id = \$1 AND doc_type = \$2`).
		WithArgs("app-1", "passport").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLatestByType(context.Background(), "app-1", "passport")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListByApplication(t *testing.T) {
	db, mock, cleanup := newDocumentMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "application_id", "doc_type", "file_name", "file_path", "file_size", "mime_type", "meta", "created_at"}).
		AddRow("d1", "app-1", "passport", "p.pdf", "u/passport/p.pdf", 100, "application/pdf", []byte(`{}`), time.Now())
	mock.ExpectQuery(`SELECT .+ FROM documents WHERE application_id = \$1 ORDER BY created_at ASC`).
		WithArgs("app-1").
		WillReturnRows(rows)

	docs, err := repo.ListByApplication(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryReplaceDeletesOldRow(t *testing.T) {
	db, mock, cleanup := newDocumentMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents WHERE id = \$1`).
		WithArgs("old-doc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc := &models.Document{
		ApplicationID: "app-1",
		DocType:       "passport",
		FileName:      "new.pdf",
		FilePath:      "u/passport/new.pdf",
		FileSize:      200,
		MimeType:      "application/pdf",
	}
	err := repo.Replace(context.Background(), "old-doc", doc)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryReplaceWithoutPredecessorSkipsDelete(t *testing.T) {
	db, mock, cleanup := newDocumentMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), "", &models.Document{ApplicationID: "app-1", DocType: "work_visa"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
