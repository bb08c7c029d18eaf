package models

import (
	"time"

	"github.com/lib/pq"
)

// ApplicationKind identifies the case type an application belongs to.
type ApplicationKind string

const (
	KindDirectHire      ApplicationKind = "direct_hire"
	KindBalikManggagawa ApplicationKind = "balik_manggagawa"
	KindGovToGov        ApplicationKind = "gov_to_gov"
)

// Valid reports whether the kind is one of the supported case types.
func (k ApplicationKind) Valid() bool {
	switch k {
	case KindDirectHire, KindBalikManggagawa, KindGovToGov:
		return true
	}
	return false
}

// ApplicationStatus tracks the coarse processing state of a case.
type ApplicationStatus string

const (
	StatusPending    ApplicationStatus = "pending"
	StatusEvaluating ApplicationStatus = "evaluating"
	StatusApproved   ApplicationStatus = "approved"
	StatusRejected   ApplicationStatus = "rejected"
)

// Application represents one case record. Kind-specific domain fields live in
// Payload; each payload key (and each attached document slot, addressed as
// document_<type>) is an independently flaggable field key.
//
// NeedsCorrection and CorrectionFields are denormalized projections of the
// correction ledger maintained exclusively by the correction workflow.
type Application struct {
	ID               string            `db:"id" json:"id"`
	Kind             ApplicationKind   `db:"kind" json:"kind"`
	ControlNumber    string            `db:"control_number" json:"control_number"`
	ApplicantUserID  *string           `db:"applicant_user_id" json:"applicant_user_id,omitempty"`
	Status           ApplicationStatus `db:"status" json:"status"`
	NeedsCorrection  bool              `db:"needs_correction" json:"needs_correction"`
	CorrectionFields pq.StringArray    `db:"correction_fields" json:"correction_fields"`
	CorrectionNote   *string           `db:"correction_note" json:"correction_note,omitempty"`
	Payload          JSONMap           `db:"payload" json:"payload"`
	CreatedBy        *string           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time        `db:"deleted_at" json:"-"`
}

// OwnedBy reports whether the application belongs to the given applicant.
func (a *Application) OwnedBy(userID string) bool {
	return a.ApplicantUserID != nil && *a.ApplicantUserID == userID
}

// HasCorrectionField reports whether the key is currently flagged on the
// application's projection.
func (a *Application) HasCorrectionField(key string) bool {
	for _, f := range a.CorrectionFields {
		if f == key {
			return true
		}
	}
	return false
}

// ApplicationFilter captures listing criteria.
type ApplicationFilter struct {
	Kind            *ApplicationKind
	Status          *ApplicationStatus
	NeedsCorrection *bool
	ApplicantUserID *string
	Search          string
	Page            int
	PageSize        int
}
