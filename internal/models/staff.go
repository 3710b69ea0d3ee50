package models

// Staff is the minimal staff record referenced by presence and chat. The full
// staff profile (schedule, services, commissions) belongs to the business
// entity layer and is out of scope here.
type Staff struct {
	BaseModel

	UserID      string `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	DisplayName string `gorm:"type:varchar(128);not null" json:"display_name"`
	Role        string `gorm:"type:varchar(32);default:'staff'" json:"role"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}
