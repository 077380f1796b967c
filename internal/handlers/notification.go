package handlers

import (
	"math"
	"net/http"
	"strconv"

	"studyshare/internal/db"
	"studyshare/internal/middleware"
	"studyshare/internal/models"
	"studyshare/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// List 通知列表，未读在前
func (h *NotificationHandler) List(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	page := 1
	if p := c.Query("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}

	var total int64
	db.DB.Model(&models.Notification{}).Where("user_id = ?", user.ID).Count(&total)

	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var notifications []models.Notification
	db.DB.Preload("Actor").
		Where("user_id = ?", user.ID).
		Order("is_read ASC, created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&notifications)

	Render(c, http.StatusOK, "notification/list.html", gin.H{
		"Title":         "我的通知",
		"Notifications": notifications,
		"CurrentPage":   page,
		"TotalPages":    totalPages,
	})
}

// Read 单条标记已读并跳转到通知指向的页面
func (h *NotificationHandler) Read(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	notificationID := utils.StringToUint(c.Param("id"))

	var notification models.Notification
	if err := db.DB.Where("id = ? AND user_id = ?", notificationID, user.ID).First(&notification).Error; err != nil {
		RenderError(c, http.StatusNotFound, "通知不存在")
		return
	}

	if !notification.IsRead {
		db.DB.Model(&notification).Update("is_read", true)
	}

	if notification.Link != "" {
		c.Redirect(http.StatusFound, notification.Link)
		return
	}
	c.Redirect(http.StatusFound, "/notifications")
}

// ReadAll 全部标记已读
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true)

	JSONSuccess(c, "已全部标记为已读", nil)
}

// Delete 删除单条通知
func (h *NotificationHandler) Delete(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	notificationID := utils.StringToUint(c.Param("id"))

	result := db.DB.Where("id = ? AND user_id = ?", notificationID, user.ID).Delete(&models.Notification{})
	if result.RowsAffected == 0 {
		JSONFail(c, http.StatusNotFound, "通知不存在")
		return
	}

	JSONSuccess(c, "通知已删除", nil)
}
