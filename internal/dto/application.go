package dto

import "github.com/balikbayani/portal-api/internal/models"

// CreateApplicationRequest is the intake payload for a new case record.
type CreateApplicationRequest struct {
	Kind            models.ApplicationKind `json:"kind" validate:"required"`
	ApplicantUserID *string                `json:"applicant_user_id"`
	Payload         map[string]interface{} `json:"payload" validate:"required"`
}

// UpdateApplicationRequest mutates domain payload fields and/or status.
type UpdateApplicationRequest struct {
	Payload map[string]interface{}    `json:"payload"`
	Status  *models.ApplicationStatus `json:"status"`
}

// ListApplicationsRequest captures listing query parameters.
type ListApplicationsRequest struct {
	Kind            string `form:"kind"`
	Status          string `form:"status"`
	NeedsCorrection *bool  `form:"needs_correction"`
	Search          string `form:"search"`
	Page            int    `form:"page"`
	PageSize        int    `form:"page_size"`
}
