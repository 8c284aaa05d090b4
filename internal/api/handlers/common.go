package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/rolestore/internal/api/middleware"
	"github.com/nebari-dev/rolestore/internal/audit"
	"gorm.io/gorm"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthCheck godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseRoleID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid role ID"})
		return 0, false
	}
	return uint(id), true
}

// recordAudit writes an audit entry; failures are logged, never returned.
func recordAudit(db *gorm.DB, c *gin.Context, action, resource string, details interface{}) {
	actor := middleware.GetActor(c)
	if err := audit.LogAction(db.WithContext(c.Request.Context()), actor, action, resource, details); err != nil {
		slog.Warn("Failed to write audit log", "action", action, "resource", resource, "error", err)
	}
}
