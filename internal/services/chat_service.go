package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/hqv2016/salonpulse/pkg/errors"
	"github.com/hqv2016/salonpulse/pkg/logger"

	"github.com/hqv2016/salonpulse/internal/models"
	"github.com/hqv2016/salonpulse/internal/realtime"
)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200
	maxMessageLength       = 4000
)

// Broadcaster is the slice of the realtime hub the chat service needs.
type Broadcaster interface {
	Broadcast(group, event string, data any)
}

// ChatService implements direct messaging between staff members. Every
// unordered pair of staff shares exactly one room; concurrent first messages
// from both sides converge on the same row through the canonical pair index.
type ChatService struct {
	db  *gorm.DB
	hub Broadcaster
	log *zap.Logger
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB, hub Broadcaster) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("services: database handle is required")
	}
	if hub == nil {
		return nil, errors.New("services: broadcaster is required")
	}
	return &ChatService{db: db, hub: hub, log: logger.WithModule("chat")}, nil
}

// canonicalPair orders two staff ids so (a, b) and (b, a) address the same room.
func canonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// GetOrCreateRoom returns the room shared by the two staff members, creating
// it on first contact. Safe under concurrent calls with either argument order.
func (s *ChatService) GetOrCreateRoom(ctx context.Context, staffA, staffB string) (*models.ChatRoom, error) {
	ctx = ensureContext(ctx)

	staffA = strings.TrimSpace(staffA)
	staffB = strings.TrimSpace(staffB)
	if staffA == "" || staffB == "" {
		return nil, apperrors.NewBadRequest("both staff ids are required")
	}
	if staffA == staffB {
		return nil, apperrors.NewBadRequest("cannot open a chat room with yourself")
	}

	low, high := canonicalPair(staffA, staffB)

	var room models.ChatRoom
	err := s.db.WithContext(ctx).
		Where("staff_low_id = ? AND staff_high_id = ?", low, high).
		First(&room).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(err, "failed to look up chat room")
	}

	room = models.ChatRoom{StaffLowID: low, StaffHighID: high}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&room)
	if result.Error != nil {
		return nil, apperrors.Wrap(result.Error, "failed to create chat room")
	}
	if result.RowsAffected == 0 {
		// Lost the race; the winner's row is the canonical one.
		if err := s.db.WithContext(ctx).
			Where("staff_low_id = ? AND staff_high_id = ?", low, high).
			First(&room).Error; err != nil {
			return nil, apperrors.Wrap(err, "failed to load chat room after conflict")
		}
	}
	return &room, nil
}

// SendMessageInput carries a new chat message.
type SendMessageInput struct {
	RoomID        string `json:"room_id" validate:"required"`
	SenderID      string `json:"sender_id" validate:"required"`
	Content       string `json:"content"`
	MessageType   string `json:"message_type"`
	AttachmentURL string `json:"attachment_url"`
	FileName      string `json:"file_name"`
	FileSize      int64  `json:"file_size"`
}

// SendMessage persists a message, bumps the recipient's unread counter and
// fans the message out to the room. The recipient additionally gets a direct
// notification on their staff group unless they muted the room.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	messageType := strings.TrimSpace(input.MessageType)
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	switch messageType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeFile:
	default:
		return nil, apperrors.NewBadRequest("unsupported message type")
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && input.AttachmentURL == "" {
		return nil, apperrors.NewBadRequest("message content is required")
	}
	if len(content) > maxMessageLength {
		return nil, apperrors.NewBadRequest("message content is too long")
	}

	room, err := s.roomForParticipant(ctx, input.RoomID, input.SenderID)
	if err != nil {
		return nil, err
	}
	recipientID := room.PeerOf(input.SenderID)

	message := models.ChatMessage{
		RoomID:        room.ID,
		SenderID:      input.SenderID,
		Content:       content,
		MessageType:   messageType,
		AttachmentURL: input.AttachmentURL,
		FileName:      input.FileName,
		FileSize:      input.FileSize,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		unreadColumn := "unread_high"
		if recipientID == room.StaffLowID {
			unreadColumn = "unread_low"
		}

		now := time.Now().UTC()
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", room.ID).
			Updates(map[string]any{
				"last_message_text":      previewText(&message),
				"last_message_sender_id": input.SenderID,
				"last_message_at":        now,
				unreadColumn:             gorm.Expr(unreadColumn+" + ?", 1),
			}).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to send chat message")
	}

	s.hub.Broadcast(realtime.GroupRoom(room.ID), realtime.EventReceiveChatMessage, message)
	if !room.MutedFor(recipientID) {
		s.hub.Broadcast(realtime.GroupStaff(recipientID), realtime.EventReceiveNotification, map[string]any{
			"type":      realtime.EventReceiveChatMessage,
			"room_id":   room.ID,
			"sender_id": input.SenderID,
			"preview":   previewText(&message),
		})
	}
	return &message, nil
}

// MarkRead marks every message the peer sent as read and clears the reader's
// unread counter. The peer is told so it can render read receipts.
func (s *ChatService) MarkRead(ctx context.Context, roomID, readerID string) error {
	ctx = ensureContext(ctx)

	room, err := s.roomForParticipant(ctx, roomID, readerID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		if err := tx.Model(&models.ChatMessage{}).
			Where("room_id = ? AND sender_id <> ? AND is_read = ?", room.ID, readerID, false).
			Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
			return err
		}

		unreadColumn := "unread_high"
		if readerID == room.StaffLowID {
			unreadColumn = "unread_low"
		}
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", room.ID).
			Update(unreadColumn, 0).Error
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to mark chat messages read")
	}

	s.hub.Broadcast(realtime.GroupRoom(room.ID), realtime.EventChatMessageRead, map[string]any{
		"room_id":  room.ID,
		"staff_id": readerID,
	})
	return nil
}

// DeleteMessage soft-deletes a message. Only the sender may delete, and the
// content is blanked so history keeps its shape without leaking the text.
func (s *ChatService) DeleteMessage(ctx context.Context, roomID, messageID, staffID string) error {
	ctx = ensureContext(ctx)

	room, err := s.roomForParticipant(ctx, roomID, staffID)
	if err != nil {
		return err
	}

	var message models.ChatMessage
	if err := s.db.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return apperrors.Wrap(err, "failed to load chat message")
	}
	if message.RoomID != room.ID {
		return apperrors.ErrNotFound
	}

	if message.SenderID != staffID {
		return apperrors.ErrForbidden
	}
	if message.IsDeleted {
		return nil
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&message).
		Updates(map[string]any{
			"is_deleted":     true,
			"deleted_at":     now,
			"deleted_by":     staffID,
			"content":        "",
			"attachment_url": "",
		}).Error; err != nil {
		return apperrors.Wrap(err, "failed to delete chat message")
	}

	s.hub.Broadcast(realtime.GroupRoom(message.RoomID), realtime.EventChatMessageDeleted, map[string]any{
		"room_id":    message.RoomID,
		"message_id": message.ID,
	})
	return nil
}

// SetMuted toggles the notification mute for one side of the room. Muting only
// silences the direct notification; room broadcasts still flow.
func (s *ChatService) SetMuted(ctx context.Context, roomID, staffID string, muted bool) error {
	ctx = ensureContext(ctx)

	room, err := s.roomForParticipant(ctx, roomID, staffID)
	if err != nil {
		return err
	}

	column := "muted_high"
	if staffID == room.StaffLowID {
		column = "muted_low"
	}
	if err := s.db.WithContext(ctx).Model(&models.ChatRoom{}).
		Where("id = ?", room.ID).
		Update(column, muted).Error; err != nil {
		return apperrors.Wrap(err, "failed to update chat room mute")
	}
	return nil
}

// ListRooms returns the staff member's rooms, most recently active first.
func (s *ChatService) ListRooms(ctx context.Context, staffID string) ([]models.ChatRoom, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(staffID) == "" {
		return nil, apperrors.NewBadRequest("staff id is required")
	}

	var rooms []models.ChatRoom
	if err := s.db.WithContext(ctx).
		Where("staff_low_id = ? OR staff_high_id = ?", staffID, staffID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&rooms).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to list chat rooms")
	}
	return rooms, nil
}

// MessageListParams paginates room history.
type MessageListParams struct {
	Page     int
	PageSize int
}

// ListMessages returns a page of room history, newest first. The caller must
// be a participant. Deleted messages come back tombstoned, never omitted.
func (s *ChatService) ListMessages(ctx context.Context, roomID, staffID string, params MessageListParams) ([]models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	room, err := s.roomForParticipant(ctx, roomID, staffID)
	if err != nil {
		return nil, err
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultMessagePageSize
	}
	if params.PageSize > maxMessagePageSize {
		params.PageSize = maxMessagePageSize
	}

	var messages []models.ChatMessage
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", room.ID).
		Order("created_at DESC").
		Offset((params.Page - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&messages).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to list chat messages")
	}
	return messages, nil
}

// ListContacts returns the active staff members the caller can open a room
// with, ordered by display name.
func (s *ChatService) ListContacts(ctx context.Context, selfID string) ([]models.Staff, error) {
	ctx = ensureContext(ctx)

	var staff []models.Staff
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND id <> ?", true, selfID).
		Order("display_name").
		Find(&staff).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to list chat contacts")
	}
	return staff, nil
}

// roomForParticipant loads a room and checks the staff member belongs to it.
// Outsiders get a not-found, not a forbidden, so room ids stay unguessable.
func (s *ChatService) roomForParticipant(ctx context.Context, roomID, staffID string) (*models.ChatRoom, error) {
	if strings.TrimSpace(roomID) == "" || strings.TrimSpace(staffID) == "" {
		return nil, apperrors.NewBadRequest("room id and staff id are required")
	}

	var room models.ChatRoom
	if err := s.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load chat room")
	}
	if !room.HasParticipant(staffID) {
		return nil, apperrors.ErrNotFound
	}
	return &room, nil
}

func previewText(message *models.ChatMessage) string {
	switch message.MessageType {
	case models.MessageTypeImage:
		return "[image]"
	case models.MessageTypeFile:
		return "[file] " + message.FileName
	default:
		// Truncate on rune boundaries so multi-byte content survives intact.
		runes := []rune(message.Content)
		if len(runes) > 120 {
			return string(runes[:120])
		}
		return message.Content
	}
}
