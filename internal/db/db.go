package db

import (
	"log"
	"os"
	"studyshare/internal/models"
	"studyshare/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=studyshare port=5432 sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	// 启动时一次性迁移，不在请求路径上做任何建表检查
	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedCategories()
	seedBadges()
	seedAdmin()
}

// Migrate 幂等建表，测试用内存库也走这里
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.ResourceCategory{},
		&models.Resource{},
		&models.Tag{},
		&models.TagRelation{},
		&models.Comment{},
		&models.Rating{},
		&models.Favorite{},
		&models.DownloadRecord{},
		&models.UserPoints{},
		&models.PointLog{},
		&models.ActivityLog{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Notification{},
		&models.PasswordResetToken{},
	)
}

func seedCategories() {
	var count int64
	DB.Model(&models.ResourceCategory{}).Count(&count)
	if count > 0 {
		log.Println("Categories already seeded, skipping")
		return
	}

	categories := []models.ResourceCategory{
		{Name: "课程笔记", Description: "各科课堂笔记与整理"},
		{Name: "作业习题", Description: "作业、习题与参考解答"},
		{Name: "考试资料", Description: "历年试卷、复习提纲"},
		{Name: "课外拓展", Description: "论文、讲座、课外阅读"},
	}

	for _, category := range categories {
		if err := DB.Create(&category).Error; err != nil {
			log.Printf("Failed to create category %s: %v", category.Name, err)
		}
	}
	log.Println("Initial categories created successfully")
}

func seedBadges() {
	var count int64
	DB.Model(&models.Badge{}).Count(&count)
	if count > 0 {
		log.Println("Badges already seeded, skipping")
		return
	}

	badges := []models.Badge{
		{Name: "初来乍到", Icon: "🌱", Description: "完成注册，开始分享之旅", PointsRequired: 0},
		{Name: "崭露头角", Icon: "🌿", Description: "累计获得 50 积分", PointsRequired: 50},
		{Name: "乐于分享", Icon: "📚", Description: "累计获得 200 积分", PointsRequired: 200},
		{Name: "资源达人", Icon: "🏅", Description: "累计获得 500 积分", PointsRequired: 500},
		{Name: "学霸认证", Icon: "🏆", Description: "累计获得 1000 积分", PointsRequired: 1000},
	}

	for _, badge := range badges {
		if err := DB.Create(&badge).Error; err != nil {
			log.Printf("Failed to create badge %s: %v", badge.Name, err)
		}
	}
	log.Println("Initial badges created successfully")
}

// seedAdmin 没有任何管理员时创建引导账号，密码从环境变量读，未配置则跳过
func seedAdmin() {
	var count int64
	DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return
	}

	email := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	password := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("No admin account exists and BOOTSTRAP_ADMIN_* not set, skipping admin seed")
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("Failed to hash bootstrap admin password: %v", err)
		return
	}

	admin := models.User{
		FirstName: "系统",
		LastName:  "管理员",
		Email:     email,
		Password:  hash,
		Role:      models.RoleAdmin,
		Status:    models.UserStatusActive,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to create bootstrap admin: %v", err)
		return
	}
	log.Printf("Bootstrap admin %s created", email)
}
