package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeApproved    NotificationType = "resource_approved"
	NotificationTypeRejected    NotificationType = "resource_rejected"
	NotificationTypeNewComment  NotificationType = "new_comment"
	NotificationTypeNewRating   NotificationType = "new_rating"
	NotificationTypeBadgeEarned NotificationType = "badge_earned"
	NotificationTypeSystem      NotificationType = "system"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // 接收者
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ActorID   *uint            `gorm:"index" json:"actor_id"` // 触发者，系统通知为空
	Actor     User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type      NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Message   string           `gorm:"type:text" json:"message"`
	Link      string           `gorm:"size:255" json:"link"` // 站内跳转地址
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
