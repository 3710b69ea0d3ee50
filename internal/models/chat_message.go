package models

import "time"

// Chat message content types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

// ChatMessage is a single message inside a ChatRoom. Messages are soft-deleted,
// never removed, so the room history stays consistent for both participants.
type ChatMessage struct {
	BaseModel

	RoomID   string `gorm:"type:uuid;not null;index" json:"room_id"`
	SenderID string `gorm:"type:uuid;not null;index" json:"sender_id"`

	Content     string `gorm:"type:text" json:"content"`
	MessageType string `gorm:"type:varchar(32);default:'text'" json:"message_type"`

	AttachmentURL string `gorm:"type:text" json:"attachment_url,omitempty"`
	FileName      string `gorm:"type:varchar(255)" json:"file_name,omitempty"`
	FileSize      int64  `json:"file_size,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	IsDeleted bool       `gorm:"default:false" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy string     `gorm:"type:uuid" json:"deleted_by,omitempty"`
}
