package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification represents a persisted admin-facing notification.
//
// Rows are only ever appended and flipped to read by this subsystem; retention
// is handled by the maintenance jobs.
type Notification struct {
	BaseModel

	Type    string         `gorm:"type:varchar(64);not null;index" json:"type"`
	Title   string         `gorm:"type:varchar(255);not null" json:"title"`
	Content string         `gorm:"type:text" json:"content"`
	Data    datatypes.JSON `json:"data"`

	ActionURL         string `gorm:"type:text" json:"action_url,omitempty"`
	RelatedEntityID   string `gorm:"type:varchar(64);index" json:"related_entity_id,omitempty"`
	RelatedEntityType string `gorm:"type:varchar(64)" json:"related_entity_type,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
