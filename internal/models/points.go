package models

import (
	"time"
)

// UserPoints 每个用户一行，累计积分与派生等级
type UserPoints struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Points    int       `gorm:"default:0" json:"points"`
	Level     int       `gorm:"default:1" json:"level"` // floor(points/100)+1
	UpdatedAt time.Time `json:"updated_at"`
}

// PointLog 积分流水，只增不改
type PointLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"` // 正数为增加
	Action    string    `gorm:"size:100;not null" json:"action"`
	Detail    string    `gorm:"size:255" json:"detail"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
