package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"studyshare/internal/db"
	"studyshare/internal/middleware"
	"studyshare/internal/models"
	"studyshare/internal/services"
	"studyshare/internal/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	mailService *services.MailService
}

func NewAdminHandler() *AdminHandler {
	return &AdminHandler{
		mailService: services.NewMailService(),
	}
}

// Dashboard 管理后台首页
func (h *AdminHandler) Dashboard(c *gin.Context) {
	var userCount, activeUserCount int64
	db.DB.Model(&models.User{}).Count(&userCount)
	db.DB.Model(&models.User{}).Where("status = ?", models.UserStatusActive).Count(&activeUserCount)

	var resourceCount, pendingCount int64
	db.DB.Model(&models.Resource{}).Count(&resourceCount)
	db.DB.Model(&models.Resource{}).Where("status = ?", models.ResourceStatusPending).Count(&pendingCount)

	var downloadCount int64
	db.DB.Model(&models.DownloadRecord{}).Count(&downloadCount)

	var commentCount int64
	db.DB.Model(&models.Comment{}).Count(&commentCount)

	// 最近 7 天的新增用户和上传
	weekAgo := time.Now().AddDate(0, 0, -7)
	var newUsers, newUploads int64
	db.DB.Model(&models.User{}).Where("created_at >= ?", weekAgo).Count(&newUsers)
	db.DB.Model(&models.Resource{}).Where("created_at >= ?", weekAgo).Count(&newUploads)

	var recentActivities []models.ActivityLog
	db.DB.Preload("User").Order("created_at DESC").Limit(10).Find(&recentActivities)

	Render(c, http.StatusOK, "admin/dashboard.html", gin.H{
		"Title":           "管理后台",
		"UserCount":       userCount,
		"ActiveUserCount": activeUserCount,
		"ResourceCount":   resourceCount,
		"PendingCount":    pendingCount,
		"DownloadCount":   downloadCount,
		"CommentCount":    commentCount,
		"NewUsers":        newUsers,
		"NewUploads":      newUploads,
		"Activities":      recentActivities,
	})
}

// ModerationQueue 审核队列，默认只看待审核
func (h *AdminHandler) ModerationQueue(c *gin.Context) {
	page := pageParam(c)
	status := c.DefaultQuery("status", models.ResourceStatusPending)
	categoryID := utils.StringToUint(c.Query("category"))
	search := c.Query("search")

	query := db.DB.Model(&models.Resource{})
	if status == models.ResourceStatusPending || status == models.ResourceStatusApproved || status == models.ResourceStatusRejected {
		query = query.Where("resources.status = ?", status)
	}
	if categoryID > 0 {
		query = query.Where("resources.category_id = ?", categoryID)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("resources.title ILIKE ?", pattern)
	}

	var total int64
	query.Count(&total)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var resources []models.Resource
	query.Preload("User").Preload("Category").
		Order("resources.created_at ASC"). // 先来先审
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&resources)

	var categories []models.ResourceCategory
	db.DB.Order("id ASC").Find(&categories)

	Render(c, http.StatusOK, "admin/moderation.html", gin.H{
		"Title":       "资源审核",
		"Resources":   resources,
		"Categories":  categories,
		"Status":      status,
		"CategoryID":  categoryID,
		"Search":      search,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"Total":       total,
	})
}

// Approve 通过审核
func (h *AdminHandler) Approve(c *gin.Context) {
	admin := c.MustGet(middleware.CheckUserKey).(*models.User)
	resourceID := utils.StringToUint(c.Param("id"))

	resource, err := services.ApproveResource(resourceID, admin.ID)
	if err != nil {
		switch err {
		case services.ErrResourceNotFound:
			JSONFail(c, http.StatusNotFound, "资源不存在")
		case services.ErrNoChange:
			JSONFail(c, http.StatusConflict, "资源已是通过状态")
		default:
			JSONFail(c, http.StatusInternalServerError, "操作失败，请稍后再试")
		}
		return
	}

	utils.GetCache().Delete("resource:browse:first")
	services.RecordActivity(admin.ID, services.AuditApprove,
		fmt.Sprintf("《%s》", resource.Title), c.ClientIP())

	var owner models.User
	if err := db.DB.First(&owner, resource.UserID).Error; err == nil {
		h.mailService.SendModerationEmail(owner.Email, resource.Title, true, "")
	}

	JSONSuccess(c, "已通过审核", nil)
}

// Reject 驳回，必须填写反馈
func (h *AdminHandler) Reject(c *gin.Context) {
	admin := c.MustGet(middleware.CheckUserKey).(*models.User)
	resourceID := utils.StringToUint(c.Param("id"))
	feedback := strings.TrimSpace(c.PostForm("feedback"))

	resource, err := services.RejectResource(resourceID, admin.ID, feedback)
	if err != nil {
		switch err {
		case services.ErrFeedbackRequired:
			JSONFail(c, http.StatusBadRequest, "驳回时必须填写反馈意见")
		case services.ErrResourceNotFound:
			JSONFail(c, http.StatusNotFound, "资源不存在")
		case services.ErrNoChange:
			JSONFail(c, http.StatusConflict, "资源已是驳回状态")
		default:
			JSONFail(c, http.StatusInternalServerError, "操作失败，请稍后再试")
		}
		return
	}

	utils.GetCache().Delete("resource:browse:first")
	services.RecordActivity(admin.ID, services.AuditReject,
		fmt.Sprintf("《%s》：%s", resource.Title, feedback), c.ClientIP())

	var owner models.User
	if err := db.DB.First(&owner, resource.UserID).Error; err == nil {
		h.mailService.SendModerationEmail(owner.Email, resource.Title, false, feedback)
	}

	JSONSuccess(c, "已驳回", nil)
}

// CategoryList 分类管理，树形展示并带资源计数
func (h *AdminHandler) CategoryList(c *gin.Context) {
	var categories []models.ResourceCategory
	db.DB.Order("id ASC").Find(&categories)

	type countRow struct {
		CategoryID uint
		Count      int64
	}
	var counts []countRow
	db.DB.Model(&models.Resource{}).
		Select("category_id, COUNT(*) as count").
		Group("category_id").
		Scan(&counts)
	countMap := make(map[uint]int64)
	for _, row := range counts {
		countMap[row.CategoryID] = row.Count
	}

	childMap := make(map[uint][]models.ResourceCategory)
	var roots []models.ResourceCategory
	for i := range categories {
		categories[i].ResourceCount = countMap[categories[i].ID]
		if categories[i].ParentID == nil {
			roots = append(roots, categories[i])
		} else {
			childMap[*categories[i].ParentID] = append(childMap[*categories[i].ParentID], categories[i])
		}
	}
	for i := range roots {
		roots[i].Children = childMap[roots[i].ID]
	}

	Render(c, http.StatusOK, "admin/categories.html", gin.H{
		"Title":      "分类管理",
		"Categories": roots,
		"All":        categories,
	})
}

// CreateCategory 新建分类，两级限制
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	admin := c.MustGet(middleware.CheckUserKey).(*models.User)

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		JSONFail(c, http.StatusBadRequest, "分类名称不能为空")
		return
	}

	category := models.ResourceCategory{
		Name:        name,
		Description: c.PostForm("description"),
	}

	if parentID := utils.StringToUint(c.PostForm("parent_id")); parentID > 0 {
		var parent models.ResourceCategory
		if err := db.DB.First(&parent, parentID).Error; err != nil {
			JSONFail(c, http.StatusBadRequest, "上级分类不存在")
			return
		}
		if parent.ParentID != nil {
			JSONFail(c, http.StatusBadRequest, "分类最多两级")
			return
		}
		category.ParentID = &parent.ID
	}

	if err := db.DB.Create(&category).Error; err != nil {
		JSONFail(c, http.StatusConflict, "分类名称已存在")
		return
	}

	services.RecordActivity(admin.ID, services.AuditCreateCategory, name, c.ClientIP())
	JSONSuccess(c, "分类已创建", gin.H{"category_id": category.ID})
}

// UpdateCategory 重命名或修改描述
func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	admin := c.MustGet(middleware.CheckUserKey).(*models.User)
	categoryID := utils.StringToUint(c.Param("id"))

	var category models.ResourceCategory
	if err := db.DB.First(&category, categoryID).Error; err != nil {
		JSONFail(c, http.StatusNotFound, "分类不存在")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		JSONFail(c, http.StatusBadRequest, "分类名称不能为空")
		return
	}

	if err := db.DB.Model(&category).Updates(map[string]interface{}{
		"name":        name,
		"description": c.PostForm("description"),
	}).Error; err != nil {
		JSONFail(c, http.StatusConflict, "分类名称已存在")
		return
	}

	services.RecordActivity(admin.ID, services.AuditUpdateCategory, name, c.ClientIP())
	JSONSuccess(c, "分类已更新", nil)
}

// DeleteCategory 删除空分类；有资源或子分类时拒绝
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	admin := c.MustGet(middleware.CheckUserKey).(*models.User)
	categoryID := utils.StringToUint(c.Param("id"))

	category, err := services.DeleteCategory(categoryID)
	if err != nil {
		switch err {
		case services.ErrCategoryNotFound:
			JSONFail(c, http.StatusNotFound, err.Error())
		case services.ErrCategoryInUse, services.ErrCategoryHasChildren:
			JSONFail(c, http.StatusConflict, err.Error())
		default:
			JSONFail(c, http.StatusInternalServerError, "删除失败，请稍后再试")
		}
		return
	}

	services.RecordActivity(admin.ID, services.AuditDeleteCategory, category.Name, c.ClientIP())
	JSONSuccess(c, "分类已删除", nil)
}

// UserList 用户管理，可按角色、状态、关键词筛选
func (h *AdminHandler) UserList(c *gin.Context) {
	page := pageParam(c)
	role := c.Query("role")
	status := c.Query("status")
	search := c.Query("search")

	query := db.DB.Model(&models.User{})
	if role == models.RoleStudent || role == models.RoleTeacher || role == models.RoleAdmin {
		query = query.Where("role = ?", role)
	}
	if status == models.UserStatusActive || status == models.UserStatusInactive {
		query = query.Where("status = ?", status)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ? OR student_id ILIKE ?",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	query.Count(&total)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var users []models.User
	query.Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&users)

	Render(c, http.StatusOK, "admin/users.html", gin.H{
		"Title":       "用户管理",
		"Users":       users,
		"Role":        role,
		"Status":      status,
		"Search":      search,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"Total":       total,
	})
}

// ToggleUserStatus 启用/停用账号，不能操作自己
func (h *AdminHandler) ToggleUserStatus(c *gin.Context) {
	admin := c.MustGet(middleware.CheckUserKey).(*models.User)
	userID := utils.StringToUint(c.Param("id"))

	if userID == admin.ID {
		JSONFail(c, http.StatusForbidden, "不能停用自己的账号")
		return
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		JSONFail(c, http.StatusNotFound, "用户不存在")
		return
	}

	newStatus := models.UserStatusInactive
	if user.Status == models.UserStatusInactive {
		newStatus = models.UserStatusActive
	}
	if err := db.DB.Model(&user).Update("status", newStatus).Error; err != nil {
		JSONFail(c, http.StatusInternalServerError, "操作失败，请稍后再试")
		return
	}

	services.RecordActivity(admin.ID, services.AuditToggleUser,
		fmt.Sprintf("%s -> %s", user.Email, newStatus), c.ClientIP())

	msg := "账号已停用"
	if newStatus == models.UserStatusActive {
		msg = "账号已启用"
	}
	JSONSuccess(c, msg, gin.H{"status": newStatus})
}

// ChangeUserRole 调整角色，不能修改自己
func (h *AdminHandler) ChangeUserRole(c *gin.Context) {
	admin := c.MustGet(middleware.CheckUserKey).(*models.User)
	userID := utils.StringToUint(c.Param("id"))
	role := c.PostForm("role")

	if userID == admin.ID {
		JSONFail(c, http.StatusForbidden, "不能修改自己的角色")
		return
	}
	if role != models.RoleStudent && role != models.RoleTeacher && role != models.RoleAdmin {
		JSONFail(c, http.StatusBadRequest, "无效的角色")
		return
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		JSONFail(c, http.StatusNotFound, "用户不存在")
		return
	}

	if err := db.DB.Model(&user).Update("role", role).Error; err != nil {
		JSONFail(c, http.StatusInternalServerError, "操作失败，请稍后再试")
		return
	}

	services.RecordActivity(admin.ID, services.AuditChangeRole,
		fmt.Sprintf("%s -> %s", user.Email, role), c.ClientIP())
	services.Notify(user.ID, nil, models.NotificationTypeSystem,
		fmt.Sprintf("您的账号角色已调整为「%s」", roleLabel(role)), "")
	JSONSuccess(c, "角色已更新", nil)
}

func roleLabel(role string) string {
	switch role {
	case models.RoleStudent:
		return "学生"
	case models.RoleTeacher:
		return "教师"
	case models.RoleAdmin:
		return "管理员"
	}
	return role
}

// ActivityLogs 审计日志，可按用户和动作筛选
func (h *AdminHandler) ActivityLogs(c *gin.Context) {
	page := pageParam(c)
	userID := utils.StringToUint(c.Query("user"))
	action := c.Query("action")

	query := db.DB.Model(&models.ActivityLog{})
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	query.Count(&total)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var logs []models.ActivityLog
	query.Preload("User").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&logs)

	Render(c, http.StatusOK, "admin/activity.html", gin.H{
		"Title":       "审计日志",
		"Logs":        logs,
		"UserID":      userID,
		"Action":      action,
		"CurrentPage": page,
		"TotalPages":  totalPages,
	})
}

func reportParams(c *gin.Context) (services.Period, uint) {
	p := services.ResolvePeriod(
		c.DefaultQuery("period", "month"),
		utils.StringToInt(c.Query("year")),
		utils.StringToInt(c.Query("month")),
		utils.StringToInt(c.Query("quarter")),
		c.Query("start"),
		c.Query("end"),
	)
	return p, utils.StringToUint(c.Query("category"))
}

// Reports 使用报表；带 export=csv 时导出文件
func (h *AdminHandler) Reports(c *gin.Context) {
	p, categoryID := reportParams(c)

	if c.Query("export") == "csv" {
		filename := fmt.Sprintf("report_%s.csv", p.Start.Format("20060102"))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		if err := services.WriteReportCSV(c.Writer, p, categoryID); err != nil {
			RenderError(c, http.StatusInternalServerError, "报表导出失败")
		}
		return
	}

	var categories []models.ResourceCategory
	db.DB.Order("id ASC").Find(&categories)

	Render(c, http.StatusOK, "admin/reports.html", gin.H{
		"Title":        "使用报表",
		"Period":       p,
		"CategoryID":   categoryID,
		"Categories":   categories,
		"Stats":        services.GetOverallStats(p, categoryID),
		"DailyUploads": services.GetDailyUploads(p, categoryID),
		"ByCategory":   services.GetCategoryBreakdown(p),
		"ByFileType":   services.GetFileTypeBreakdown(p, categoryID),
		"TopDownloads": services.GetTopDownloads(p, categoryID, 10),
		"TopUploaders": services.GetTopUploaders(p, 10),
	})
}
