package dto

import (
	"io"

	"github.com/balikbayani/portal-api/internal/models"
)

// FlagFieldItem is one field flag raised by staff.
type FlagFieldItem struct {
	FieldKey string `json:"field_key" validate:"required"`
	Message  string `json:"message"`
}

// FlagFieldsRequest asks the engine to flag one or more fields for correction.
type FlagFieldsRequest struct {
	Items []FlagFieldItem `json:"items" validate:"required,min=1,dive"`
	Note  *string         `json:"note"`
}

// ResolveFieldRequest toggles the resolution state of one flagged field.
type ResolveFieldRequest struct {
	FieldKey string `json:"field_key" validate:"required"`
	Resolved *bool  `json:"resolved" validate:"required"`
}

// DocumentSubmission carries one uploaded file of an applicant resubmission.
type DocumentSubmission struct {
	FieldKey string
	FileName string
	MimeType string
	Content  io.Reader
	Meta     models.JSONMap
}

// SubmitCorrectionRequest is the applicant's resubmission: payload values
// and replacement documents, both restricted to currently flagged fields.
type SubmitCorrectionRequest struct {
	Payload   map[string]interface{} `json:"payload"`
	Documents []DocumentSubmission   `json:"-"`
}
