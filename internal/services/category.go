package services

import (
	"errors"

	"studyshare/internal/db"
	"studyshare/internal/models"
)

var (
	ErrCategoryNotFound    = errors.New("分类不存在")
	ErrCategoryInUse       = errors.New("该分类下仍有资源，无法删除")
	ErrCategoryHasChildren = errors.New("该分类下仍有子分类，无法删除")
)

// DeleteCategory 只允许删除既无资源也无子分类的分类
func DeleteCategory(categoryID uint) (*models.ResourceCategory, error) {
	var category models.ResourceCategory
	if err := db.DB.First(&category, categoryID).Error; err != nil {
		return nil, ErrCategoryNotFound
	}

	var resourceCount int64
	if err := db.DB.Model(&models.Resource{}).
		Where("category_id = ?", categoryID).Count(&resourceCount).Error; err != nil {
		return nil, err
	}
	if resourceCount > 0 {
		return nil, ErrCategoryInUse
	}

	var childCount int64
	if err := db.DB.Model(&models.ResourceCategory{}).
		Where("parent_id = ?", categoryID).Count(&childCount).Error; err != nil {
		return nil, err
	}
	if childCount > 0 {
		return nil, ErrCategoryHasChildren
	}

	if err := db.DB.Delete(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}
