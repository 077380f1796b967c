package models

import (
	"time"
)

// ResourceCategory 资源分类，两级树结构
type ResourceCategory struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"not null;unique" json:"name"`
	Description string            `json:"description"`
	ParentID    *uint             `gorm:"index" json:"parent_id"` // 顶级分类为空
	Parent      *ResourceCategory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"parent"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// 非数据库字段
	ResourceCount int64              `gorm:"-" json:"resource_count"`
	Children      []ResourceCategory `gorm:"-" json:"children"`
}
