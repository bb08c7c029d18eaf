package models

import "time"

// CorrectionEntry is one ledger row: a staff-authored flag on a specific
// field of a specific application, with its own resolution lifecycle.
//
// Ordinarily at most one row exists per (application, field key) pair: the
// flag operation rewrites the latest row in place rather than inserting a
// duplicate. When historical duplicates do exist, the most recently created
// row is the authoritative one.
type CorrectionEntry struct {
	ID            string     `db:"id" json:"id"`
	ApplicationID string     `db:"application_id" json:"application_id"`
	FieldKey      string     `db:"field_key" json:"field_key"`
	Message       string     `db:"message" json:"message"`
	CreatedBy     *string    `db:"created_by" json:"created_by,omitempty"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Resolved reports whether the entry has been verified fixed by staff.
func (e *CorrectionEntry) Resolved() bool {
	return e.ResolvedAt != nil
}

// FlagItem is one field flag request raised by staff.
type FlagItem struct {
	FieldKey string `json:"field_key"`
	Message  string `json:"message"`
}
