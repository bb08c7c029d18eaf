package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/balikbayani/portal-api/internal/models"
	"github.com/balikbayani/portal-api/internal/service"
)

// Audit records an audit log entry after each successful request on the
// wrapped route. Request metadata goes into new_values; failures are handled
// by the audit service and never affect the response.
func Audit(audit *service.AuditService, action, tableName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims := CurrentUser(c); claims != nil {
			userID = &claims.UserID
		}

		var recordID *string
		if id := c.Param("id"); id != "" {
			recordID = &id
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		audit.Record(c.Request.Context(), &models.AuditLog{
			UserID:    userID,
			Action:    action,
			TableName: tableName,
			RecordID:  recordID,
			NewValues: body,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
	}
}
