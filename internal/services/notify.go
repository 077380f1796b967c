package services

import (
	"log"
	"studyshare/internal/db"
	"studyshare/internal/models"

	"gorm.io/gorm"
)

// Notify 插入一条未读站内通知；失败只打日志
func Notify(userID uint, actorID *uint, ntype models.NotificationType, message, link string) {
	if err := notifyTx(db.DB, userID, actorID, ntype, message, link); err != nil {
		log.Printf("Failed to create notification for user %d: %v", userID, err)
	}
}

func notifyTx(tx *gorm.DB, userID uint, actorID *uint, ntype models.NotificationType, message, link string) error {
	notification := models.Notification{
		UserID:  userID,
		ActorID: actorID,
		Type:    ntype,
		Message: message,
		Link:    link,
	}
	return tx.Create(&notification).Error
}
