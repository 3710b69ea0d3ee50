package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hqv2016/salonpulse/pkg/response"

	"github.com/hqv2016/salonpulse/internal/services"
)

// NotificationHandler exposes the persisted notification feed to the admin UI.
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns a page of notifications plus the unread counter.
func (h *NotificationHandler) List(c *gin.Context) {
	// Both snake_case and camelCase spellings are accepted; the dashboard
	// client sends pageSize/unreadOnly.
	pageSize := parseIntQuery(c, "page_size", 0)
	if pageSize == 0 {
		pageSize = parseIntQuery(c, "pageSize", 0)
	}
	params := services.NotificationListParams{
		Page:       parseIntQuery(c, "page", 1),
		PageSize:   pageSize,
		UnreadOnly: parseBoolQuery(c, "unread_only") || parseBoolQuery(c, "unreadOnly"),
	}

	list, err := h.notifications.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// UnreadCount returns just the unread counter for badge polling.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread_count": count})
}

// MarkRead marks a single notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notification, err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notification)
}

// MarkAllRead marks every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	affected, err := h.notifications.MarkAllRead(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"marked_read": affected})
}
