package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/balikbayani/portal-api/internal/models"
)

const documentColumns = `id, application_id, doc_type, file_name, file_path, file_size, mime_type, meta, created_at`

// DocumentRepository persists attached-document rows.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// ListByApplication returns all documents attached to an application.
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE application_id = $1 ORDER BY created_at ASC`, documentColumns)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, applicationID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// FindByID fetches one document row.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindLatestByType returns the current document of one type for an
// application. Returns sql.ErrNoRows when no document of that type exists.
func (r *DocumentRepository) FindLatestByType(ctx context.Context, applicationID, docType string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents
WHERE application_id = $1 AND doc_type = $2
ORDER BY created_at DESC LIMIT 1`, documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, applicationID, docType); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a document row.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.CreatedAt = time.Now().UTC()
	if doc.Meta == nil {
		doc.Meta = models.JSONMap{}
	}
	const query = `INSERT INTO documents (id, application_id, doc_type, file_name, file_path, file_size, mime_type, meta, created_at)
VALUES (:id, :application_id, :doc_type, :file_name, :file_path, :file_size, :mime_type, :meta, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Replace deletes the previous document row (when oldID is non-empty) and
// inserts its replacement within one transaction.
func (r *DocumentRepository) Replace(ctx context.Context, oldID string, doc *models.Document) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace document tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if oldID != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, oldID); err != nil {
			return fmt.Errorf("delete previous document: %w", err)
		}
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.CreatedAt = time.Now().UTC()
	if doc.Meta == nil {
		doc.Meta = models.JSONMap{}
	}
	const query = `INSERT INTO documents (id, application_id, doc_type, file_name, file_path, file_size, mime_type, meta, created_at)
VALUES (:id, :application_id, :doc_type, :file_name, :file_path, :file_size, :mime_type, :meta, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("insert replacement document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace document tx: %w", err)
	}
	return nil
}
