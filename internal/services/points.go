package services

import (
	"errors"
	"fmt"
	"time"
	"studyshare/internal/db"
	"studyshare/internal/models"

	"gorm.io/gorm"
)

// 积分动作常量
const (
	ActionDailyLogin         = "每日登录"
	ActionUploadApproved     = "资源通过审核"
	ActionResourceDownloaded = "资源被下载"
	ActionCommentCreate      = "发表评论"
	ActionRatingCreate       = "评分资源"
)

// 积分值常量
const (
	PointsDailyLogin         = 2
	PointsUploadApproved     = 10
	PointsResourceDownloaded = 2
	PointsCommentCreate      = 1
	PointsRatingCreate       = 1
)

// 每 100 积分升一级
const PointsPerLevel = 100

// LevelForPoints 由累计积分推导等级
func LevelForPoints(points int) int {
	return points/PointsPerLevel + 1
}

// Award 使用事务添加积分并记录明细，随后重算等级、检查徽章
// 本身不做幂等，调用方负责不重复发放（登录奖励自带当日判重）
func Award(userID uint, amount int, action, detail string) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		return awardTx(tx, userID, amount, action, detail)
	})
}

func awardTx(tx *gorm.DB, userID uint, amount int, action, detail string) error {
	// 1. 积分流水
	plog := models.PointLog{
		UserID: userID,
		Amount: amount,
		Action: action,
		Detail: detail,
	}
	if err := tx.Create(&plog).Error; err != nil {
		return err
	}

	// 2. 更新积分余额（没有记录则从 0 建一条）
	var up models.UserPoints
	err := tx.Where("user_id = ?", userID).First(&up).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		up = models.UserPoints{UserID: userID, Points: 0, Level: 1}
		if err := tx.Create(&up).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	up.Points += amount
	if up.Points < 0 {
		up.Points = 0
	}

	// 3. 等级只升不降
	if lvl := LevelForPoints(up.Points); lvl > up.Level {
		up.Level = lvl
		levelLog := models.ActivityLog{
			UserID: userID,
			Action: AuditLevelUp,
			Detail: fmt.Sprintf("等级提升至 %d 级", lvl),
		}
		if err := tx.Create(&levelLog).Error; err != nil {
			return err
		}
	}

	if err := tx.Model(&models.UserPoints{}).Where("id = ?", up.ID).
		Updates(map[string]interface{}{"points": up.Points, "level": up.Level}).Error; err != nil {
		return err
	}

	// 4. 徽章解锁
	return checkBadgesTx(tx, userID, up.Points)
}

// checkBadgesTx 发放所有已达门槛且尚未持有的徽章，按门槛从低到高
func checkBadgesTx(tx *gorm.DB, userID uint, points int) error {
	var heldIDs []uint
	if err := tx.Model(&models.UserBadge{}).Where("user_id = ?", userID).
		Pluck("badge_id", &heldIDs).Error; err != nil {
		return err
	}

	query := tx.Where("points_required <= ?", points)
	if len(heldIDs) > 0 {
		query = query.Where("id NOT IN ?", heldIDs)
	}

	var badges []models.Badge
	if err := query.Order("points_required ASC").Find(&badges).Error; err != nil {
		return err
	}

	for _, badge := range badges {
		ub := models.UserBadge{UserID: userID, BadgeID: badge.ID}
		if err := tx.Create(&ub).Error; err != nil {
			return err
		}
		blog := models.ActivityLog{
			UserID: userID,
			Action: AuditBadgeEarned,
			Detail: fmt.Sprintf("获得徽章「%s」", badge.Name),
		}
		if err := tx.Create(&blog).Error; err != nil {
			return err
		}
		if err := notifyTx(tx, userID, nil, models.NotificationTypeBadgeEarned,
			fmt.Sprintf("恭喜！您解锁了新徽章 %s「%s」", badge.Icon, badge.Name), "/dashboard/badges"); err != nil {
			return err
		}
	}
	return nil
}

// getTodayRange 获取今日的开始和结束时间
func getTodayRange() (time.Time, time.Time) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)
	return startOfDay, endOfDay
}

// countTodayPointLogs 统计今日指定动作的积分记录数
func countTodayPointLogs(userID uint, action string) int64 {
	startOfDay, endOfDay := getTodayRange()
	var count int64
	db.DB.Model(&models.PointLog{}).
		Where("user_id = ? AND action = ? AND created_at >= ? AND created_at < ?", userID, action, startOfDay, endOfDay).
		Count(&count)
	return count
}

// HasLoginBonusToday 检查今日是否已发放过登录奖励
func HasLoginBonusToday(userID uint) bool {
	return countTodayPointLogs(userID, ActionDailyLogin) > 0
}

// GrantLoginBonus 登录奖励，同一自然日只发一次
func GrantLoginBonus(userID uint) (awarded bool, err error) {
	if HasLoginBonusToday(userID) {
		return false, nil
	}
	if err := Award(userID, PointsDailyLogin, ActionDailyLogin, ""); err != nil {
		return false, err
	}
	return true, nil
}

// GetUserPoints 读取积分账户，没有记录时返回零值账户
func GetUserPoints(userID uint) models.UserPoints {
	var up models.UserPoints
	if err := db.DB.Where("user_id = ?", userID).First(&up).Error; err != nil {
		return models.UserPoints{UserID: userID, Points: 0, Level: 1}
	}
	return up
}
