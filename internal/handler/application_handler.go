package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/middleware"
	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
	"github.com/balikbayani/portal-api/pkg/response"
)

type applicationService interface {
	Create(ctx context.Context, req dto.CreateApplicationRequest, actor *models.JWTClaims) (*models.Application, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Application, error)
	List(ctx context.Context, req dto.ListApplicationsRequest, actor *models.JWTClaims) ([]models.Application, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateApplicationRequest, actor *models.JWTClaims) (*models.Application, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// ApplicationHandler exposes case record endpoints.
type ApplicationHandler struct {
	apps applicationService
}

// NewApplicationHandler constructs handler.
func NewApplicationHandler(apps applicationService) *ApplicationHandler {
	return &ApplicationHandler{apps: apps}
}

// Create godoc
// @Summary Register a new application
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.CreateApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req dto.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	app, err := h.apps.Create(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// Get godoc
// @Summary Fetch one application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.apps.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app)
}

// List godoc
// @Summary List applications
// @Tags Applications
// @Produce json
// @Param kind query string false "Application kind"
// @Param status query string false "Status filter"
// @Param needs_correction query bool false "Correction flag filter"
// @Param search query string false "Control number or payload search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	var req dto.ListApplicationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	apps, pagination, err := h.apps.List(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"applications": apps, "pagination": pagination})
}

// Update godoc
// @Summary Update application payload or status
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [put]
func (h *ApplicationHandler) Update(c *gin.Context) {
	var req dto.UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	app, err := h.apps.Update(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app)
}

// Delete godoc
// @Summary Soft delete an application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [delete]
func (h *ApplicationHandler) Delete(c *gin.Context) {
	if err := h.apps.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "application deleted")
}
