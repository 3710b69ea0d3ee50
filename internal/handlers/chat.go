package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hqv2016/salonpulse/pkg/response"

	"github.com/hqv2016/salonpulse/internal/middleware"
	"github.com/hqv2016/salonpulse/internal/realtime"
	"github.com/hqv2016/salonpulse/internal/services"
)

// ChatHandler exposes staff-to-staff messaging. Every route requires a staff
// identity; the acting staff id always comes from the token, never the body.
type ChatHandler struct {
	chat     *services.ChatService
	registry *realtime.Registry
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(chat *services.ChatService, registry *realtime.Registry) *ChatHandler {
	return &ChatHandler{chat: chat, registry: registry}
}

type contact struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Online      bool   `json:"online"`
}

// ListContacts returns the staff directory for the chat contact picker, with
// a live presence flag per entry.
func (h *ChatHandler) ListContacts(c *gin.Context) {
	staff, err := h.chat.ListContacts(c.Request.Context(), c.GetString(middleware.ContextStaffID))
	if err != nil {
		response.Error(c, err)
		return
	}

	contacts := make([]contact, 0, len(staff))
	for _, member := range staff {
		contacts = append(contacts, contact{
			ID:          member.ID,
			DisplayName: member.DisplayName,
			Role:        member.Role,
			Online:      h.registry.IsOnline(member.ID),
		})
	}
	response.Success(c, http.StatusOK, contacts)
}

type openRoomRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
}

// OpenRoom returns the room shared with another staff member, creating it on
// first contact.
func (h *ChatHandler) OpenRoom(c *gin.Context) {
	var req openRoomRequest
	if err := bindAndValidate(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	room, err := h.chat.GetOrCreateRoom(c.Request.Context(), c.GetString(middleware.ContextStaffID), req.StaffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, room)
}

// ListRooms returns the caller's rooms, most recently active first.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	rooms, err := h.chat.ListRooms(c.Request.Context(), c.GetString(middleware.ContextStaffID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rooms)
}

// ListMessages returns a page of room history, newest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages, err := h.chat.ListMessages(c.Request.Context(),
		c.Param("id"),
		c.GetString(middleware.ContextStaffID),
		services.MessageListParams{
			Page:     parseIntQuery(c, "page", 1),
			PageSize: parseIntQuery(c, "page_size", 0),
		})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content       string `json:"content"`
	MessageType   string `json:"message_type"`
	AttachmentURL string `json:"attachment_url"`
	FileName      string `json:"file_name"`
	FileSize      int64  `json:"file_size"`
}

// SendMessage posts a message to a room.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	message, err := h.chat.SendMessage(c.Request.Context(), services.SendMessageInput{
		RoomID:        c.Param("id"),
		SenderID:      c.GetString(middleware.ContextStaffID),
		Content:       req.Content,
		MessageType:   req.MessageType,
		AttachmentURL: req.AttachmentURL,
		FileName:      req.FileName,
		FileSize:      req.FileSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// MarkRead marks the peer's messages in the room as read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	if err := h.chat.MarkRead(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextStaffID)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"read": true})
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

// SetMuted toggles the caller's notification mute for the room.
func (h *ChatHandler) SetMuted(c *gin.Context) {
	var req muteRequest
	if err := bindAndValidate(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.chat.SetMuted(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextStaffID), req.Muted); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"muted": req.Muted})
}

// DeleteMessage soft-deletes one of the caller's own messages.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	if err := h.chat.DeleteMessage(c.Request.Context(), c.Param("id"), c.Param("messageId"), c.GetString(middleware.ContextStaffID)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
