package models

import "time"

// Notification kinds delivered through the in-app inbox.
const (
	NotificationCorrectionRequested = "correction_requested"
	NotificationCorrectionSubmitted = "correction_submitted"
	NotificationResubmissionReview  = "resubmission_review"
)

// Notification is one in-app inbox message.
type Notification struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	Kind            string          `db:"kind" json:"kind"`
	Title           string          `db:"title" json:"title"`
	Body            string          `db:"body" json:"body"`
	ApplicationKind ApplicationKind `db:"application_kind" json:"application_kind"`
	ApplicationID   string          `db:"application_id" json:"application_id"`
	FieldKey        *string         `db:"field_key" json:"field_key,omitempty"`
	Read            bool            `db:"read" json:"read"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
