package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/balikbayani/portal-api/internal/models"
)

const applicationColumns = `id, kind, control_number, applicant_user_id, status, needs_correction,
correction_fields, correction_note, payload, created_by, created_at, updated_at, deleted_at`

// ApplicationRepository persists case records.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new application row.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.CorrectionFields == nil {
		app.CorrectionFields = pq.StringArray{}
	}
	const query = `INSERT INTO applications (id, kind, control_number, applicant_user_id, status, needs_correction,
correction_fields, correction_note, payload, created_by, created_at, updated_at)
VALUES (:id, :kind, :control_number, :applicant_user_id, :status, :needs_correction,
:correction_fields, :correction_note, :payload, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// FindByID fetches a single non-deleted application.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1 AND deleted_at IS NULL`, applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// List returns applications matching the filter plus the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []interface{}{}

	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Kind != nil {
		addCondition("kind = $%d", *filter.Kind)
	}
	if filter.Status != nil {
		addCondition("status = $%d", *filter.Status)
	}
	if filter.NeedsCorrection != nil {
		addCondition("needs_correction = $%d", *filter.NeedsCorrection)
	}
	if filter.ApplicantUserID != nil {
		addCondition("applicant_user_id = $%d", *filter.ApplicantUserID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(control_number ILIKE $%d OR payload::text ILIKE $%d)", len(args), len(args)))
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM applications WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	args = append(args, pageSize, (page-1)*pageSize)
	listQuery := fmt.Sprintf(`SELECT %s FROM applications WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		applicationColumns, where, len(args)-1, len(args))

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	return apps, total, nil
}

// UpdatePayload merges the given fields into the payload column and bumps
// updated_at. Status is updated when non-nil.
func (r *ApplicationRepository) UpdatePayload(ctx context.Context, id string, fields models.JSONMap, status *models.ApplicationStatus) error {
	if status != nil {
		const query = `UPDATE applications SET payload = payload || $2, status = $3, updated_at = $4
WHERE id = $1 AND deleted_at IS NULL`
		if _, err := r.db.ExecContext(ctx, query, id, fields, *status, time.Now().UTC()); err != nil {
			return fmt.Errorf("update application payload: %w", err)
		}
		return nil
	}
	const query = `UPDATE applications SET payload = payload || $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, fields, time.Now().UTC()); err != nil {
		return fmt.Errorf("update application payload: %w", err)
	}
	return nil
}

// ApplyCorrection applies an applicant resubmission in one statement: it
// merges the allowed payload fields and unconditionally clears the
// needs_correction projection. Ledger rows are left untouched; resubmission
// signals "I believe I fixed it", not "it is verified fixed".
func (r *ApplicationRepository) ApplyCorrection(ctx context.Context, id string, fields models.JSONMap) error {
	if fields == nil {
		fields = models.JSONMap{}
	}
	const query = `UPDATE applications SET payload = payload || $2, needs_correction = FALSE, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, fields, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply correction payload: %w", err)
	}
	return nil
}

// SoftDelete marks the application deleted without removing the row.
func (r *ApplicationRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE applications SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("soft delete application: %w", err)
	}
	return nil
}

// ListDriftedFlags returns ids of applications whose needs_correction flag is
// set while their ledger holds no unresolved entries. The opposite state
// (unresolved entries with the flag off) is a legal post-resubmission state
// and is intentionally not reported.
func (r *ApplicationRepository) ListDriftedFlags(ctx context.Context) ([]string, error) {
	const query = `SELECT a.id FROM applications a
WHERE a.deleted_at IS NULL AND a.needs_correction = TRUE
  AND NOT EXISTS (
    SELECT 1 FROM correction_entries e
    WHERE e.application_id = a.id AND e.resolved_at IS NULL
  )`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list drifted correction flags: %w", err)
	}
	return ids, nil
}

// ClearCorrectionState resets the projection on one application.
func (r *ApplicationRepository) ClearCorrectionState(ctx context.Context, id string) error {
	const query = `UPDATE applications SET needs_correction = FALSE, correction_fields = '{}', updated_at = $2
WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear correction state: %w", err)
	}
	return nil
}
