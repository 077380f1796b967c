package services

import (
	"errors"
	"time"
	"studyshare/internal/db"
	"studyshare/internal/models"
	"studyshare/internal/utils"

	"gorm.io/gorm"
)

var ErrInvalidToken = errors.New("重置链接无效或已过期")

const resetTokenTTL = time.Hour

// RequestPasswordReset 签发重置令牌，旧令牌一律作废
// 账号不存在时返回空令牌且不报错，调用方对两种情况给出相同响应，防止探测账号
func RequestPasswordReset(email, studentID string) (string, *models.User, error) {
	query := db.DB.Where("email = ?", email)
	if studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}

	var user models.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, nil
		}
		return "", nil, err
	}

	token, err := utils.GenerateToken()
	if err != nil {
		return "", nil, err
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		record := models.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: utils.HashToken(token),
			ExpiresAt: time.Now().Add(resetTokenTTL),
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// ConsumePasswordReset 校验令牌并更新密码，成功后删除令牌
func ConsumePasswordReset(token, email, newPassword string) error {
	var user models.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return ErrInvalidToken
	}

	var record models.PasswordResetToken
	if err := db.DB.Where("user_id = ?", user.ID).First(&record).Error; err != nil {
		return ErrInvalidToken
	}
	if record.Expired() || record.TokenHash != utils.HashToken(token) {
		return ErrInvalidToken
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("password", hash).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PasswordResetToken{}, record.ID).Error
	})
}
