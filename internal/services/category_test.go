package services

import (
	"errors"
	"testing"

	"studyshare/internal/db"
	"studyshare/internal/models"
)

func TestDeleteCategoryBlockedWhenInUse(t *testing.T) {
	setupTestDB(t)
	uploader := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, uploader.ID, category.ID, models.ResourceStatusApproved)

	if _, err := DeleteCategory(category.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("Expected ErrCategoryInUse, got %v", err)
	}

	// 清空资源后即可删除
	if err := DeleteResource(resource.ID, uploader.ID, false); err != nil {
		t.Fatalf("DeleteResource failed: %v", err)
	}
	deleted, err := DeleteCategory(category.ID)
	if err != nil {
		t.Fatalf("Empty category should be deletable, got %v", err)
	}
	if deleted.Name != "课程笔记" {
		t.Errorf("Unexpected deleted category: %+v", deleted)
	}

	var count int64
	db.DB.Model(&models.ResourceCategory{}).Where("id = ?", category.ID).Count(&count)
	if count != 0 {
		t.Errorf("Category row should be gone after delete")
	}
}

func TestDeleteCategoryBlockedWhenHasChildren(t *testing.T) {
	setupTestDB(t)
	parent := createTestCategory(t, "课程笔记")
	child := models.ResourceCategory{Name: "高数笔记", ParentID: &parent.ID}
	if err := db.DB.Create(&child).Error; err != nil {
		t.Fatalf("Failed to create child category: %v", err)
	}

	if _, err := DeleteCategory(parent.ID); !errors.Is(err, ErrCategoryHasChildren) {
		t.Fatalf("Expected ErrCategoryHasChildren, got %v", err)
	}

	// 先删子分类，父分类才可删
	if _, err := DeleteCategory(child.ID); err != nil {
		t.Fatalf("Leaf category should be deletable, got %v", err)
	}
	if _, err := DeleteCategory(parent.ID); err != nil {
		t.Fatalf("Parent should be deletable after children removed, got %v", err)
	}
}

func TestDeleteCategoryNotFound(t *testing.T) {
	setupTestDB(t)
	if _, err := DeleteCategory(9999); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("Expected ErrCategoryNotFound, got %v", err)
	}
}
