package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balikbayani/portal-api/internal/middleware"
	"github.com/balikbayani/portal-api/internal/service"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
	"github.com/balikbayani/portal-api/pkg/response"
)

// AuditHandler exposes audit trail endpoints.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit entries for one record
// @Tags Audit
// @Produce json
// @Param table_name query string true "Audited table"
// @Param record_id query string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	tableName := c.Query("table_name")
	recordID := c.Query("record_id")
	if tableName == "" || recordID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "table_name and record_id are required"))
		return
	}
	logs, err := h.audit.ListForRecord(c.Request.Context(), tableName, recordID, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}

// Purge godoc
// @Summary Delete the audit trail of one record
// @Tags Audit
// @Produce json
// @Param table_name query string true "Audited table"
// @Param record_id query string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [delete]
func (h *AuditHandler) Purge(c *gin.Context) {
	tableName := c.Query("table_name")
	recordID := c.Query("record_id")
	if tableName == "" || recordID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "table_name and record_id are required"))
		return
	}
	deleted, err := h.audit.PurgeRecord(c.Request.Context(), tableName, recordID, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted})
}
