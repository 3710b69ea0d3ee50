package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hqv2016/salonpulse/pkg/response"

	"github.com/hqv2016/salonpulse/internal/realtime"
)

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	db       *gorm.DB
	registry *realtime.Registry
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB, registry *realtime.Registry) *HealthHandler {
	return &HealthHandler{db: db, registry: registry}
}

// Check pings the database and reports connection counts.
func (h *HealthHandler) Check(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			status = "degraded"
			dbStatus = "unreachable"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	response.Success(c, code, gin.H{
		"status":       status,
		"database":     dbStatus,
		"connections":  h.registry.Count(),
		"online_staff": len(h.registry.OnlineStaff()),
	})
}
