package models

import (
	"time"
)

// Favorite 收藏，(user_id, resource_id) 唯一
type Favorite struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_user_resource_fav" json:"user_id"`
	ResourceID uint      `gorm:"not null;index;uniqueIndex:idx_user_resource_fav" json:"resource_id"`
	Resource   Resource  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"resource"`
	CreatedAt  time.Time `json:"created_at"`
}
