package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hqv2016/salonpulse/pkg/response"

	"github.com/hqv2016/salonpulse/internal/realtime"
)

// PresenceHandler exposes staff presence over HTTP for clients that are in
// the polling fallback or rendering an initial page.
type PresenceHandler struct {
	registry *realtime.Registry
}

// NewPresenceHandler constructs a PresenceHandler.
func NewPresenceHandler(registry *realtime.Registry) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

// OnlineStaff returns the sorted list of staff ids with a live connection.
func (h *PresenceHandler) OnlineStaff(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"staff_ids": h.registry.OnlineStaff(),
	})
}

// StaffStatus reports whether one staff member is online.
func (h *PresenceHandler) StaffStatus(c *gin.Context) {
	staffID := c.Param("id")
	response.Success(c, http.StatusOK, gin.H{
		"staff_id": staffID,
		"online":   h.registry.IsOnline(staffID),
	})
}
