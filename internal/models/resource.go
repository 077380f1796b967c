package models

import (
	"time"
)

// 资源审核状态
const (
	ResourceStatusPending  = "pending"
	ResourceStatusApproved = "approved"
	ResourceStatusRejected = "rejected"
)

type Resource struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Rid           string           `gorm:"uniqueIndex;size:8;not null" json:"rid"`
	UserID        uint             `gorm:"not null;index" json:"user_id"`
	User          User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	CategoryID    uint             `gorm:"not null;index" json:"category_id"`
	Category      ResourceCategory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Title         string           `gorm:"not null" json:"title"`
	Description   string           `gorm:"type:text" json:"description"` // Markdown，展示时渲染
	FileName      string           `gorm:"not null" json:"file_name"`    // 原始文件名
	FilePath      string           `gorm:"not null" json:"file_path"`    // 存储相对路径
	FileType      string           `gorm:"size:20" json:"file_type"`     // 扩展名，如 pdf、docx
	FileSize      int64            `gorm:"default:0" json:"file_size"`
	Status        string           `gorm:"size:20;default:'pending';not null;index" json:"status"`
	AdminFeedback string           `gorm:"type:text" json:"admin_feedback"` // 仅驳回时填写
	DownloadCount int              `gorm:"default:0" json:"download_count"`
	ViewCount     int              `gorm:"default:0" json:"view_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// 非数据库字段，查询时填充
	CommentCount int     `gorm:"-" json:"comment_count"`
	AvgRating    float64 `gorm:"-" json:"avg_rating"`
	RatingCount  int     `gorm:"-" json:"rating_count"`
	Tags         []Tag   `gorm:"-" json:"tags"`
}

// DownloadRecord 下载历史，一次下载一条
type DownloadRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResourceID uint      `gorm:"not null;index" json:"resource_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}
