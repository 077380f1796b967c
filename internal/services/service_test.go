package services

import (
	"fmt"
	"testing"

	"studyshare/internal/db"
	"studyshare/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 用内存 sqlite 替换全局连接，每个测试一个干净库
func setupTestDB(t *testing.T) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// 内存库必须单连接，否则每个连接各自一个空库
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	db.DB = gdb
}

func seedTestBadges(t *testing.T) {
	t.Helper()
	badges := []models.Badge{
		{Name: "初来乍到", PointsRequired: 0},
		{Name: "崭露头角", PointsRequired: 50},
		{Name: "乐于分享", PointsRequired: 200},
	}
	for i := range badges {
		if err := db.DB.Create(&badges[i]).Error; err != nil {
			t.Fatalf("Failed to seed badge: %v", err)
		}
	}
}

var testUserSeq int

func createTestUser(t *testing.T, role string) *models.User {
	t.Helper()
	testUserSeq++
	sid := fmt.Sprintf("2023%06d", testUserSeq)
	user := models.User{
		FirstName: "小明",
		LastName:  "王",
		Email:     fmt.Sprintf("user%d@example.edu", testUserSeq),
		Password:  "hashed",
		Role:      role,
		Status:    models.UserStatusActive,
		StudentID: &sid,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return &user
}

func createTestCategory(t *testing.T, name string) *models.ResourceCategory {
	t.Helper()
	category := models.ResourceCategory{Name: name}
	if err := db.DB.Create(&category).Error; err != nil {
		t.Fatalf("Failed to create test category: %v", err)
	}
	return &category
}

func createTestResource(t *testing.T, userID, categoryID uint, status string) *models.Resource {
	t.Helper()
	testUserSeq++
	resource := models.Resource{
		Rid:        fmt.Sprintf("rid%05d", testUserSeq),
		UserID:     userID,
		CategoryID: categoryID,
		Title:      "高等数学期末复习提纲",
		FileName:   "review.pdf",
		FilePath:   "abc.pdf",
		FileType:   "pdf",
		FileSize:   1024,
		Status:     status,
	}
	if err := db.DB.Create(&resource).Error; err != nil {
		t.Fatalf("Failed to create test resource: %v", err)
	}
	return &resource
}
