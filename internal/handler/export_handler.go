package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/middleware"
	"github.com/balikbayani/portal-api/internal/service"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
	"github.com/balikbayani/portal-api/pkg/response"
)

// ExportHandler streams application listing reports.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Export godoc
// @Summary Export the application listing
// @Tags Applications
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Param kind query string false "Application kind"
// @Param status query string false "Status filter"
// @Param needs_correction query bool false "Correction flag filter"
// @Success 200 {file} binary
// @Router /applications/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ListApplicationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	file, err := h.exports.ExportApplications(c.Request.Context(), req, c.Query("format"), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
