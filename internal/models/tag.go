package models

import (
	"time"
)

// Tag 标签，首次使用时按名称创建
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex;size:50" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagRelation 资源与标签的多对多关联
type TagRelation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResourceID uint      `gorm:"not null;index;uniqueIndex:idx_resource_tag" json:"resource_id"`
	TagID      uint      `gorm:"not null;index;uniqueIndex:idx_resource_tag" json:"tag_id"`
	Tag        Tag       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"tag"`
	CreatedAt  time.Time `json:"created_at"`
}
