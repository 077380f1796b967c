package services

import (
	"log"
	"studyshare/internal/db"
	"studyshare/internal/models"
)

// 审计动作标识
const (
	AuditLogin          = "login"
	AuditRegister       = "register"
	AuditPasswordReset  = "password_reset"
	AuditUploadResource = "upload_resource"
	AuditEditResource   = "edit_resource"
	AuditDeleteResource = "delete_resource"
	AuditApprove        = "approve_resource"
	AuditReject         = "reject_resource"
	AuditDownload       = "download_resource"
	AuditCreateCategory = "create_category"
	AuditUpdateCategory = "update_category"
	AuditDeleteCategory = "delete_category"
	AuditUpdateProfile  = "update_profile"
	AuditToggleUser     = "toggle_user_status"
	AuditChangeRole     = "change_user_role"
	AuditLevelUp        = "level_up"
	AuditBadgeEarned    = "badge_earned"
)

// RecordActivity 追加一条审计记录；失败只打日志，绝不影响主流程
func RecordActivity(userID uint, action, detail, ip string) {
	entry := models.ActivityLog{
		UserID: userID,
		Action: action,
		Detail: detail,
		IP:     ip,
	}
	if err := db.DB.Create(&entry).Error; err != nil {
		log.Printf("Failed to record activity %s for user %d: %v", action, userID, err)
	}
}
