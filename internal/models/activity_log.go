package models

import (
	"time"
)

// ActivityLog 操作审计流水，只增不改
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:100;not null;index" json:"action"`
	Detail    string    `gorm:"type:text" json:"detail"`
	IP        string    `gorm:"size:45" json:"ip"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
