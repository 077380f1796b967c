package models

import (
	"time"
)

// Rating 评分，(resource_id, user_id) 唯一，重复提交走更新
type Rating struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResourceID uint      `gorm:"not null;index;uniqueIndex:idx_resource_user_rating" json:"resource_id"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_resource_user_rating" json:"user_id"`
	Score      int       `gorm:"not null" json:"score"` // 1-5
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
