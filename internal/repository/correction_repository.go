package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/balikbayani/portal-api/internal/models"
)

const correctionColumns = `id, application_id, field_key, message, created_by, resolved_at, created_at`

// CorrectionRepository persists the correction ledger and keeps the
// application-level projection consistent with it. Multi-row effects run in
// one transaction so a mid-operation failure cannot leave a partially
// flagged application behind.
type CorrectionRepository struct {
	db *sqlx.DB
}

// NewCorrectionRepository constructs the repository.
func NewCorrectionRepository(db *sqlx.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

// ListByApplication returns ledger entries ordered by creation time.
func (r *CorrectionRepository) ListByApplication(ctx context.Context, applicationID string, includeResolved bool) ([]models.CorrectionEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM correction_entries WHERE application_id = $1`, correctionColumns)
	if !includeResolved {
		query += ` AND resolved_at IS NULL`
	}
	query += ` ORDER BY created_at ASC`
	var entries []models.CorrectionEntry
	if err := r.db.SelectContext(ctx, &entries, query, applicationID); err != nil {
		return nil, fmt.Errorf("list correction entries: %w", err)
	}
	return entries, nil
}

// LatestByField returns the most recently created entry for one field,
// resolved or not. Returns sql.ErrNoRows when the field was never flagged.
func (r *CorrectionRepository) LatestByField(ctx context.Context, applicationID, fieldKey string) (*models.CorrectionEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM correction_entries
WHERE application_id = $1 AND field_key = $2
ORDER BY created_at DESC LIMIT 1`, correctionColumns)
	var entry models.CorrectionEntry
	if err := r.db.GetContext(ctx, &entry, query, applicationID, fieldKey); err != nil {
		return nil, err
	}
	return &entry, nil
}

// LatestPerField returns the single most recent entry per field key across
// the given keys, resolved entries included. Used to attribute resubmitted
// fields to the staff member who flagged them.
func (r *CorrectionRepository) LatestPerField(ctx context.Context, applicationID string, fieldKeys []string) ([]models.CorrectionEntry, error) {
	if len(fieldKeys) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT DISTINCT ON (field_key) %s FROM correction_entries
WHERE application_id = $1 AND field_key = ANY($2)
ORDER BY field_key, created_at DESC`, correctionColumns)
	var entries []models.CorrectionEntry
	if err := r.db.SelectContext(ctx, &entries, query, applicationID, pq.Array(fieldKeys)); err != nil {
		return nil, fmt.Errorf("latest correction entries per field: %w", err)
	}
	return entries, nil
}

// FlagFields upserts one ledger row per item and merges the flagged keys
// into the application projection, all within one transaction.
//
// The upsert rule: when a row for (application, field) already exists, the
// latest one is rewritten in place (message, created_by, resolved cleared);
// only a never-flagged field inserts a new row.
func (r *CorrectionRepository) FlagFields(ctx context.Context, applicationID string, items []models.FlagItem, createdBy string, note *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flag fields tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current pq.StringArray
	const lockQuery = `SELECT correction_fields FROM applications WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	if err := tx.GetContext(ctx, &current, lockQuery, applicationID); err != nil {
		return fmt.Errorf("lock application for flagging: %w", err)
	}

	now := time.Now().UTC()
	const updateQuery = `UPDATE correction_entries SET message = $3, created_by = $4, resolved_at = NULL
WHERE id = (
  SELECT id FROM correction_entries
  WHERE application_id = $1 AND field_key = $2
  ORDER BY created_at DESC LIMIT 1
)`
	const insertQuery = `INSERT INTO correction_entries (id, application_id, field_key, message, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, item := range items {
		res, err := tx.ExecContext(ctx, updateQuery, applicationID, item.FieldKey, item.Message, createdBy)
		if err != nil {
			return fmt.Errorf("upsert correction entry: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("upsert correction entry: %w", err)
		}
		if affected == 0 {
			if _, err := tx.ExecContext(ctx, insertQuery, uuid.NewString(), applicationID, item.FieldKey, item.Message, createdBy, now); err != nil {
				return fmt.Errorf("insert correction entry: %w", err)
			}
		}
	}

	merged := mergeFieldKeys(current, items)
	const projectQuery = `UPDATE applications SET needs_correction = TRUE, correction_fields = $2, correction_note = $3, updated_at = $4
WHERE id = $1`
	if _, err := tx.ExecContext(ctx, projectQuery, applicationID, merged, note, now); err != nil {
		return fmt.Errorf("project correction flags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flag fields tx: %w", err)
	}
	return nil
}

// Resolve toggles the resolution state of all ledger rows matching the field
// key and recomputes the application projection, in one transaction. The
// update is set-based so historical duplicate rows are tolerated.
//
// Resolving the last unresolved entry clears the projection entirely; a
// non-last resolve leaves correction_fields untouched. Un-resolving forces
// needs_correction back on regardless of the projection's field list.
func (r *CorrectionRepository) Resolve(ctx context.Context, applicationID, fieldKey string, resolved bool) (remaining int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin resolve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if resolved {
		const resolveQuery = `UPDATE correction_entries SET resolved_at = $3
WHERE application_id = $1 AND field_key = $2 AND resolved_at IS NULL`
		if _, err := tx.ExecContext(ctx, resolveQuery, applicationID, fieldKey, now); err != nil {
			return 0, fmt.Errorf("resolve correction entries: %w", err)
		}
	} else {
		const unresolveQuery = `UPDATE correction_entries SET resolved_at = NULL
WHERE application_id = $1 AND field_key = $2`
		if _, err := tx.ExecContext(ctx, unresolveQuery, applicationID, fieldKey); err != nil {
			return 0, fmt.Errorf("unresolve correction entries: %w", err)
		}
	}

	const countQuery = `SELECT COUNT(*) FROM correction_entries WHERE application_id = $1 AND resolved_at IS NULL`
	if err := tx.GetContext(ctx, &remaining, countQuery, applicationID); err != nil {
		return 0, fmt.Errorf("count unresolved entries: %w", err)
	}

	if resolved {
		if remaining == 0 {
			const clearQuery = `UPDATE applications SET needs_correction = FALSE, correction_fields = '{}', updated_at = $2
WHERE id = $1`
			if _, err := tx.ExecContext(ctx, clearQuery, applicationID, now); err != nil {
				return 0, fmt.Errorf("clear correction projection: %w", err)
			}
		}
	} else {
		const forceQuery = `UPDATE applications SET needs_correction = TRUE, updated_at = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, forceQuery, applicationID, now); err != nil {
			return 0, fmt.Errorf("force correction flag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit resolve tx: %w", err)
	}
	return remaining, nil
}

func mergeFieldKeys(current pq.StringArray, items []models.FlagItem) pq.StringArray {
	seen := make(map[string]struct{}, len(current)+len(items))
	merged := make(pq.StringArray, 0, len(current)+len(items))
	for _, key := range current {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, key)
	}
	for _, item := range items {
		if _, ok := seen[item.FieldKey]; ok {
			continue
		}
		seen[item.FieldKey] = struct{}{}
		merged = append(merged, item.FieldKey)
	}
	return merged
}
