package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"studyshare/internal/db"
	"studyshare/internal/middleware"
	"studyshare/internal/models"
	"studyshare/internal/services"
	"studyshare/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

func pageParam(c *gin.Context) int {
	page := 1
	if p := c.Query("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}
	return page
}

// Dashboard 个人中心首页
func (h *UserHandler) Dashboard(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	type statusCount struct {
		Status string
		Count  int64
	}
	var statusCounts []statusCount
	db.DB.Model(&models.Resource{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", user.ID).
		Group("status").
		Scan(&statusCounts)

	uploadStats := gin.H{"pending": int64(0), "approved": int64(0), "rejected": int64(0)}
	var totalUploads int64
	for _, sc := range statusCounts {
		uploadStats[sc.Status] = sc.Count
		totalUploads += sc.Count
	}

	var totalDownloads int64
	db.DB.Model(&models.Resource{}).
		Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(download_count), 0)").
		Scan(&totalDownloads)

	var favoriteCount int64
	db.DB.Model(&models.Favorite{}).Where("user_id = ?", user.ID).Count(&favoriteCount)

	var recentUploads []models.Resource
	db.DB.Preload("Category").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(5).
		Find(&recentUploads)

	var badges []models.UserBadge
	db.DB.Preload("Badge").Where("user_id = ?", user.ID).Order("created_at ASC").Find(&badges)

	Render(c, http.StatusOK, "dashboard/index.html", gin.H{
		"Title":          "个人中心",
		"Points":         services.GetUserPoints(user.ID),
		"UploadStats":    uploadStats,
		"TotalUploads":   totalUploads,
		"TotalDownloads": totalDownloads,
		"FavoriteCount":  favoriteCount,
		"RecentUploads":  recentUploads,
		"Badges":         badges,
	})
}

// MyUploads 我的上传，可按状态筛选
func (h *UserHandler) MyUploads(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	page := pageParam(c)
	status := c.Query("status")

	query := db.DB.Model(&models.Resource{}).Where("user_id = ?", user.ID)
	if status == models.ResourceStatusPending || status == models.ResourceStatusApproved || status == models.ResourceStatusRejected {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var resources []models.Resource
	query.Preload("Category").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&resources)
	fillResourceStats(resources)

	Render(c, http.StatusOK, "dashboard/uploads.html", gin.H{
		"Title":       "我的上传",
		"Resources":   resources,
		"Status":      status,
		"CurrentPage": page,
		"TotalPages":  totalPages,
	})
}

// MyFavorites 我的收藏
func (h *UserHandler) MyFavorites(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	page := pageParam(c)

	var total int64
	db.DB.Model(&models.Favorite{}).Where("user_id = ?", user.ID).Count(&total)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var favorites []models.Favorite
	db.DB.Preload("Resource").Preload("Resource.User").Preload("Resource.Category").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&favorites)

	Render(c, http.StatusOK, "dashboard/favorites.html", gin.H{
		"Title":       "我的收藏",
		"Favorites":   favorites,
		"CurrentPage": page,
		"TotalPages":  totalPages,
	})
}

// PointLogs 积分明细
func (h *UserHandler) PointLogs(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	page := pageParam(c)

	var total int64
	db.DB.Model(&models.PointLog{}).Where("user_id = ?", user.ID).Count(&total)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var logs []models.PointLog
	db.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&logs)

	points := services.GetUserPoints(user.ID)

	// 距离下一等级还差多少分
	nextLevelAt := points.Level * services.PointsPerLevel

	Render(c, http.StatusOK, "dashboard/points.html", gin.H{
		"Title":       "积分明细",
		"Points":      points,
		"NextLevelAt": nextLevelAt,
		"Logs":        logs,
		"CurrentPage": page,
		"TotalPages":  totalPages,
	})
}

// Badges 徽章墙，展示全部徽章与解锁状态
func (h *UserHandler) Badges(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var allBadges []models.Badge
	db.DB.Order("points_required ASC").Find(&allBadges)

	var earned []models.UserBadge
	db.DB.Where("user_id = ?", user.ID).Find(&earned)

	earnedMap := make(map[uint]models.UserBadge)
	for _, ub := range earned {
		earnedMap[ub.BadgeID] = ub
	}

	type BadgeView struct {
		models.Badge
		Earned   bool
		EarnedAt string
	}
	badgeViews := make([]BadgeView, len(allBadges))
	for i, b := range allBadges {
		badgeViews[i] = BadgeView{Badge: b}
		if ub, ok := earnedMap[b.ID]; ok {
			badgeViews[i].Earned = true
			badgeViews[i].EarnedAt = ub.CreatedAt.Format("2006-01-02")
		}
	}

	Render(c, http.StatusOK, "dashboard/badges.html", gin.H{
		"Title":  "我的徽章",
		"Badges": badgeViews,
		"Points": services.GetUserPoints(user.ID),
	})
}

// Profile 公开主页，只展示该用户已通过的资源
func (h *UserHandler) Profile(c *gin.Context) {
	userID := utils.StringToUint(c.Param("id"))

	var profileUser models.User
	if err := db.DB.First(&profileUser, userID).Error; err != nil {
		RenderError(c, http.StatusNotFound, "用户不存在")
		return
	}

	page := pageParam(c)

	query := db.DB.Model(&models.Resource{}).
		Where("user_id = ? AND status = ?", profileUser.ID, models.ResourceStatusApproved)

	var total int64
	query.Count(&total)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var resources []models.Resource
	query.Preload("Category").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&resources)
	fillResourceStats(resources)

	var badges []models.UserBadge
	db.DB.Preload("Badge").Where("user_id = ?", profileUser.ID).Order("created_at ASC").Find(&badges)

	Render(c, http.StatusOK, "user/profile.html", gin.H{
		"Title":       profileUser.FullName(),
		"ProfileUser": profileUser,
		"Points":      services.GetUserPoints(profileUser.ID),
		"Badges":      badges,
		"Resources":   resources,
		"Total":       total,
		"CurrentPage": page,
		"TotalPages":  totalPages,
	})
}

func (h *UserHandler) ShowSettings(c *gin.Context) {
	Render(c, http.StatusOK, "dashboard/settings.html", gin.H{
		"Title": "账号设置",
	})
}

// UpdateSettings 修改资料，新密码需验证旧密码
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	firstName := c.PostForm("first_name")
	lastName := c.PostForm("last_name")
	if firstName == "" || lastName == "" {
		h.renderSettingsError(c, "姓名不能为空")
		return
	}

	updates := map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
		"department": c.PostForm("department"),
	}
	if year := utils.StringToInt(c.PostForm("year_of_study")); year > 0 {
		updates["year_of_study"] = year
	}

	newPassword := c.PostForm("new_password")
	if newPassword != "" {
		if len(newPassword) < 6 {
			h.renderSettingsError(c, "新密码长度至少 6 位")
			return
		}
		if !utils.CheckPasswordHash(c.PostForm("old_password"), user.Password) {
			h.renderSettingsError(c, "旧密码不正确")
			return
		}
		hashed, err := utils.HashPassword(newPassword)
		if err != nil {
			h.renderSettingsError(c, "密码更新失败")
			return
		}
		updates["password"] = hashed
	}

	if err := db.DB.Model(user).Updates(updates).Error; err != nil {
		h.renderSettingsError(c, "保存失败，请稍后再试")
		return
	}

	services.RecordActivity(user.ID, services.AuditUpdateProfile,
		fmt.Sprintf("%s %s", firstName, lastName), c.ClientIP())

	SetFlash(c, "资料已更新")
	c.Redirect(http.StatusFound, "/dashboard/settings")
}

func (h *UserHandler) renderSettingsError(c *gin.Context, msg string) {
	Render(c, http.StatusBadRequest, "dashboard/settings.html", gin.H{
		"Title": "账号设置",
		"Error": msg,
	})
}
