package models

import (
	"time"
)

// PasswordResetToken 密码重置令牌，只存哈希，每个用户至多一条有效记录
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	TokenHash string    `gorm:"size:64;not null" json:"-"` // sha256 hex
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired 是否已过期
func (t *PasswordResetToken) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}
