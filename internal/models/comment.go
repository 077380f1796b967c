package models

import (
	"time"
)

type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResourceID uint      `gorm:"not null;index" json:"resource_id"`
	Resource   Resource  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"resource"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Content    string    `gorm:"type:text;not null" json:"content"` // Markdown
	CreatedAt  time.Time `json:"created_at"`
}
