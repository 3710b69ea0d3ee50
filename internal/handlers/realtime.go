package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/hqv2016/salonpulse/internal/middleware"
	"github.com/hqv2016/salonpulse/internal/realtime"
)

// RealtimeHandler upgrades authenticated requests to websocket connections.
type RealtimeHandler struct {
	hub *realtime.Hub
}

// NewRealtimeHandler constructs a RealtimeHandler.
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Connect hands the request over to the hub. The identity was established by
// the auth middleware and stays fixed for the connection's lifetime.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	h.hub.Serve(middleware.IdentityFromContext(c), c.Writer, c.Request)
}
