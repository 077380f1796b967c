package models

import (
	"time"
)

// Badge 徽章定义，按积分门槛解锁
type Badge struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null;unique" json:"name"`
	Description    string    `json:"description"`
	Icon           string    `gorm:"size:10" json:"icon"` // emoji 图标
	PointsRequired int       `gorm:"not null;index" json:"points_required"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserBadge 解锁记录，(user_id, badge_id) 唯一
type UserBadge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID   uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge     Badge     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"badge"`
	CreatedAt time.Time `json:"created_at"`
}
