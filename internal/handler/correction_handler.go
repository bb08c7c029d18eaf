package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/middleware"
	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
	"github.com/balikbayani/portal-api/pkg/response"
)

type correctionService interface {
	FlagFields(ctx context.Context, applicationID string, req dto.FlagFieldsRequest, actor *models.JWTClaims) error
	List(ctx context.Context, applicationID string, includeResolved bool, actor *models.JWTClaims) ([]models.CorrectionEntry, error)
	ResolveField(ctx context.Context, applicationID string, req dto.ResolveFieldRequest, actor *models.JWTClaims) error
	SubmitCorrection(ctx context.Context, applicationID string, req dto.SubmitCorrectionRequest, actor *models.JWTClaims) error
}

// CorrectionHandler exposes the correction workflow endpoints.
type CorrectionHandler struct {
	corrections correctionService
}

// NewCorrectionHandler constructs handler.
func NewCorrectionHandler(corrections correctionService) *CorrectionHandler {
	return &CorrectionHandler{corrections: corrections}
}

// Flag godoc
// @Summary Flag fields for correction
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.FlagFieldsRequest true "Fields to flag"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/corrections [post]
func (h *CorrectionHandler) Flag(c *gin.Context) {
	var req dto.FlagFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.corrections.FlagFields(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "fields flagged for correction")
}

// List godoc
// @Summary List correction entries for an application
// @Tags Corrections
// @Produce json
// @Param id path string true "Application ID"
// @Param include_resolved query bool false "Include resolved entries"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/corrections [get]
func (h *CorrectionHandler) List(c *gin.Context) {
	includeResolved := strings.EqualFold(c.Query("include_resolved"), "true")
	entries, err := h.corrections.List(c.Request.Context(), c.Param("id"), includeResolved, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// Resolve godoc
// @Summary Resolve or un-resolve one flagged field
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.ResolveFieldRequest true "Resolution change"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/corrections [patch]
func (h *CorrectionHandler) Resolve(c *gin.Context) {
	var req dto.ResolveFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.corrections.ResolveField(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "resolution state updated")
}

// Submit godoc
// @Summary Resubmit corrected fields
// @Tags Corrections
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/corrections/submit [post]
func (h *CorrectionHandler) Submit(c *gin.Context) {
	req, cleanup, err := h.bindSubmission(c)
	defer cleanup()
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.corrections.SubmitCorrection(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "correction submitted")
}

// bindSubmission accepts either a JSON body or a multipart form. Multipart
// value parts become payload entries under their form names; file parts
// become document submissions. The service maps form names to field keys.
// The returned cleanup closes opened file parts and must run after the
// submission has been consumed; disk-backed parts hold a descriptor open.
func (h *CorrectionHandler) bindSubmission(c *gin.Context) (dto.SubmitCorrectionRequest, func(), error) {
	var req dto.SubmitCorrectionRequest
	var closers []io.Closer
	cleanup := func() {
		for _, cl := range closers {
			cl.Close() //nolint:errcheck
		}
	}

	contentType := c.ContentType()
	if !strings.HasPrefix(contentType, "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, cleanup, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
		}
		return req, cleanup, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, cleanup, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form")
	}

	req.Payload = make(map[string]interface{}, len(form.Value))
	for name, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		req.Payload[name] = values[0]
	}

	for name, files := range form.File {
		if len(files) == 0 {
			continue
		}
		header := files[0]
		file, err := header.Open()
		if err != nil {
			return req, cleanup, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file part")
		}
		closers = append(closers, file)
		req.Documents = append(req.Documents, dto.DocumentSubmission{
			FieldKey: name,
			FileName: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  file,
		})
	}
	return req, cleanup, nil
}
