package models

import "time"

// ChatRoom represents the single conversation between an unordered pair of
// staff members. The pair is stored in canonical order (StaffLowID < StaffHighID)
// and protected by a composite uniqueness constraint so lookups with either
// argument order resolve to the same row.
type ChatRoom struct {
	BaseModel

	StaffLowID  string `gorm:"type:uuid;not null;uniqueIndex:idx_chat_rooms_pair" json:"staff_low_id"`
	StaffHighID string `gorm:"type:uuid;not null;uniqueIndex:idx_chat_rooms_pair" json:"staff_high_id"`

	LastMessageText     string     `gorm:"type:text" json:"last_message_text,omitempty"`
	LastMessageSenderID string     `gorm:"type:uuid" json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`

	UnreadLow  int `gorm:"default:0" json:"unread_low"`
	UnreadHigh int `gorm:"default:0" json:"unread_high"`

	MutedLow  bool `gorm:"default:false" json:"muted_low"`
	MutedHigh bool `gorm:"default:false" json:"muted_high"`
}

// HasParticipant reports whether the supplied staff id belongs to the room.
func (r *ChatRoom) HasParticipant(staffID string) bool {
	return staffID == r.StaffLowID || staffID == r.StaffHighID
}

// PeerOf returns the other participant for the supplied staff id.
func (r *ChatRoom) PeerOf(staffID string) string {
	if staffID == r.StaffLowID {
		return r.StaffHighID
	}
	return r.StaffLowID
}

// UnreadFor returns the unread counter belonging to the supplied staff id.
func (r *ChatRoom) UnreadFor(staffID string) int {
	if staffID == r.StaffLowID {
		return r.UnreadLow
	}
	return r.UnreadHigh
}

// MutedFor returns whether the supplied staff id has muted the room.
func (r *ChatRoom) MutedFor(staffID string) bool {
	if staffID == r.StaffLowID {
		return r.MutedLow
	}
	return r.MutedHigh
}
