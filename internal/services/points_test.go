package services

import (
	"testing"

	"studyshare/internal/db"
	"studyshare/internal/models"
)

func TestAwardAccumulatesAndLevels(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, models.RoleStudent)

	if err := Award(user.ID, 30, ActionUploadApproved, "测试"); err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	up := GetUserPoints(user.ID)
	if up.Points != 30 || up.Level != 1 {
		t.Errorf("Expected 30 points at level 1, got %d points at level %d", up.Points, up.Level)
	}

	// 跨过 100 分应升到 2 级
	if err := Award(user.ID, 80, ActionResourceDownloaded, "测试"); err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	up = GetUserPoints(user.ID)
	if up.Points != 110 || up.Level != 2 {
		t.Errorf("Expected 110 points at level 2, got %d points at level %d", up.Points, up.Level)
	}

	var levelLogs int64
	db.DB.Model(&models.ActivityLog{}).
		Where("user_id = ? AND action = ?", user.ID, AuditLevelUp).Count(&levelLogs)
	if levelLogs != 1 {
		t.Errorf("Expected 1 level-up audit entry, got %d", levelLogs)
	}
}

func TestLevelNeverDecreases(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, models.RoleStudent)

	if err := Award(user.ID, 150, ActionUploadApproved, ""); err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	if err := Award(user.ID, -140, "积分扣减", ""); err != nil {
		t.Fatalf("Award failed: %v", err)
	}

	up := GetUserPoints(user.ID)
	if up.Points != 10 {
		t.Errorf("Expected 10 points, got %d", up.Points)
	}
	if up.Level != 2 {
		t.Errorf("Level should stay at 2 after deduction, got %d", up.Level)
	}
}

func TestPointsNeverNegative(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, models.RoleStudent)

	if err := Award(user.ID, -50, "积分扣减", ""); err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	if up := GetUserPoints(user.ID); up.Points != 0 {
		t.Errorf("Points should clamp at 0, got %d", up.Points)
	}
}

func TestBadgeUnlockAscending(t *testing.T) {
	setupTestDB(t)
	seedTestBadges(t)
	user := createTestUser(t, models.RoleStudent)

	// 一次跨过两个门槛（0 分与 50 分），应一并解锁两枚
	if err := Award(user.ID, 60, ActionUploadApproved, ""); err != nil {
		t.Fatalf("Award failed: %v", err)
	}

	var earned []models.UserBadge
	db.DB.Where("user_id = ?", user.ID).Order("id ASC").Find(&earned)
	if len(earned) != 2 {
		t.Fatalf("Expected 2 badges at 60 points, got %d", len(earned))
	}

	// 已持有的不重复发放
	if err := Award(user.ID, 10, ActionCommentCreate, ""); err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	var count int64
	db.DB.Model(&models.UserBadge{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 2 {
		t.Errorf("Badges should not be re-granted, got %d", count)
	}

	// 每枚徽章都应有一条站内通知
	var notifications int64
	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", user.ID, models.NotificationTypeBadgeEarned).Count(&notifications)
	if notifications != 2 {
		t.Errorf("Expected 2 badge notifications, got %d", notifications)
	}
}

func TestGrantLoginBonusOncePerDay(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, models.RoleStudent)

	awarded, err := GrantLoginBonus(user.ID)
	if err != nil {
		t.Fatalf("GrantLoginBonus failed: %v", err)
	}
	if !awarded {
		t.Error("First login of the day should award the bonus")
	}

	// 同一天第二次登录不再发放
	awarded, err = GrantLoginBonus(user.ID)
	if err != nil {
		t.Fatalf("GrantLoginBonus failed: %v", err)
	}
	if awarded {
		t.Error("Second login of the day should not award the bonus")
	}

	if up := GetUserPoints(user.ID); up.Points != PointsDailyLogin {
		t.Errorf("Expected %d points, got %d", PointsDailyLogin, up.Points)
	}
}

func TestLevelForPoints(t *testing.T) {
	cases := []struct {
		points int
		level  int
	}{
		{0, 1}, {99, 1}, {100, 2}, {199, 2}, {200, 3}, {1000, 11},
	}
	for _, c := range cases {
		if got := LevelForPoints(c.points); got != c.level {
			t.Errorf("LevelForPoints(%d) = %d, want %d", c.points, got, c.level)
		}
	}
}
