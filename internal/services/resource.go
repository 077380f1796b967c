package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"studyshare/internal/db"
	"studyshare/internal/models"

	"gorm.io/gorm"
)

var (
	ErrResourceNotFound = errors.New("资源不存在")
	ErrNoChange         = errors.New("状态未发生变化")
	ErrFeedbackRequired = errors.New("驳回必须填写反馈意见")
	ErrForbidden        = errors.New("没有权限执行此操作")
	ErrNotApproved      = errors.New("资源尚未通过审核")
	ErrInvalidRating    = errors.New("评分必须在 1 到 5 之间")
	ErrEmptyComment     = errors.New("评论内容不能为空")
)

// ApproveResource 审核通过：置状态、清空反馈、通知作者并发积分
// 状态未变（已是通过/并发重复审批）返回 ErrNoChange，由调用方提示
func ApproveResource(resourceID, adminID uint) (*models.Resource, error) {
	var resource models.Resource
	if err := db.DB.First(&resource, resourceID).Error; err != nil {
		return nil, ErrResourceNotFound
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Resource{}).
			Where("id = ? AND status <> ?", resourceID, models.ResourceStatusApproved).
			Updates(map[string]interface{}{
				"status":         models.ResourceStatusApproved,
				"admin_feedback": "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoChange
		}

		if err := awardTx(tx, resource.UserID, PointsUploadApproved, ActionUploadApproved,
			fmt.Sprintf("《%s》", resource.Title)); err != nil {
			return err
		}
		return notifyTx(tx, resource.UserID, &adminID, models.NotificationTypeApproved,
			fmt.Sprintf("您上传的资源《%s》已通过审核，+%d 积分", resource.Title, PointsUploadApproved),
			"/r/"+resource.Rid)
	})
	if err != nil {
		return nil, err
	}

	resource.Status = models.ResourceStatusApproved
	resource.AdminFeedback = ""
	return &resource, nil
}

// RejectResource 审核驳回：反馈意见必填，随通知发给作者
// 支持已通过资源的二次审核（approved → rejected）
func RejectResource(resourceID, adminID uint, feedback string) (*models.Resource, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, ErrFeedbackRequired
	}

	var resource models.Resource
	if err := db.DB.First(&resource, resourceID).Error; err != nil {
		return nil, ErrResourceNotFound
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Resource{}).
			Where("id = ? AND status <> ?", resourceID, models.ResourceStatusRejected).
			Updates(map[string]interface{}{
				"status":         models.ResourceStatusRejected,
				"admin_feedback": feedback,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoChange
		}

		return notifyTx(tx, resource.UserID, &adminID, models.NotificationTypeRejected,
			fmt.Sprintf("您上传的资源《%s》未通过审核。反馈意见：%s", resource.Title, feedback),
			"/r/"+resource.Rid)
	})
	if err != nil {
		return nil, err
	}

	resource.Status = models.ResourceStatusRejected
	resource.AdminFeedback = feedback
	return &resource, nil
}

// DeleteResource 删除资源及其全部关联行，提交后再尽力删物理文件
// 文件删除失败不影响数据库删除（崩溃窗口可能留下孤儿文件，可接受）
func DeleteResource(resourceID, requesterID uint, isAdmin bool) error {
	var resource models.Resource
	if err := db.DB.First(&resource, resourceID).Error; err != nil {
		return ErrResourceNotFound
	}

	if resource.UserID != requesterID && !isAdmin {
		return ErrForbidden
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.TagRelation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.DownloadRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Resource{}, resourceID).Error
	})
	if err != nil {
		return err
	}

	DeleteStored(resource.FilePath)
	return nil
}

// RecordDownload 只允许下载已通过的资源
// 计数、下载历史、作者积分三件事在同一事务里完成；自己下载自己的资源不发积分
func RecordDownload(resourceID, userID uint) (*models.Resource, error) {
	var resource models.Resource
	if err := db.DB.First(&resource, resourceID).Error; err != nil {
		return nil, ErrResourceNotFound
	}
	if resource.Status != models.ResourceStatusApproved {
		return nil, ErrNotApproved
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Resource{}).Where("id = ?", resourceID).
			UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error; err != nil {
			return err
		}
		record := models.DownloadRecord{ResourceID: resourceID, UserID: userID}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if resource.UserID != userID {
			return awardTx(tx, resource.UserID, PointsResourceDownloaded, ActionResourceDownloaded,
				fmt.Sprintf("《%s》", resource.Title))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resource.DownloadCount++
	return &resource, nil
}

// RecordView 浏览计数，失败不向用户暴露
func RecordView(resourceID uint) {
	if err := db.DB.Model(&models.Resource{}).Where("id = ?", resourceID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error; err != nil {
		log.Printf("Failed to record view for resource %d: %v", resourceID, err)
	}
}

// RateResource 评分走 (resource, user) 维度的 upsert
// 首次评分给评分人发积分并通知作者；更新评分不重复发
func RateResource(resourceID, userID uint, score int) (created bool, err error) {
	if score < 1 || score > 5 {
		return false, ErrInvalidRating
	}

	var resource models.Resource
	if err := db.DB.First(&resource, resourceID).Error; err != nil {
		return false, ErrResourceNotFound
	}
	if resource.Status != models.ResourceStatusApproved {
		return false, ErrNotApproved
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Rating
		findErr := tx.Where("resource_id = ? AND user_id = ?", resourceID, userID).First(&existing).Error
		if findErr == nil {
			return tx.Model(&existing).Update("score", score).Error
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 插入包在保存点里：并发撞唯一索引时只回滚保存点，
		// 外层事务不会被 Postgres 置为 aborted 状态
		rating := models.Rating{ResourceID: resourceID, UserID: userID, Score: score}
		createErr := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&rating).Error
		})
		if createErr != nil {
			// 并发插入撞唯一索引，按已存在处理，改为更新
			res := tx.Model(&models.Rating{}).
				Where("resource_id = ? AND user_id = ?", resourceID, userID).
				Update("score", score)
			if res.Error != nil {
				return res.Error
			}
			// 更新不到行说明插入失败另有原因，原样上报
			if res.RowsAffected == 0 {
				return createErr
			}
			return nil
		}
		created = true

		if err := awardTx(tx, userID, PointsRatingCreate, ActionRatingCreate,
			fmt.Sprintf("《%s》", resource.Title)); err != nil {
			return err
		}
		if resource.UserID != userID {
			return notifyTx(tx, resource.UserID, &userID, models.NotificationTypeNewRating,
				fmt.Sprintf("您的资源《%s》收到了 %d 星评分", resource.Title, score),
				"/r/"+resource.Rid)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// CommentResource 发表评论，给评论人发积分；评论自己的资源不通知
func CommentResource(resourceID, userID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}

	var resource models.Resource
	if err := db.DB.First(&resource, resourceID).Error; err != nil {
		return nil, ErrResourceNotFound
	}
	if resource.Status != models.ResourceStatusApproved {
		return nil, ErrNotApproved
	}

	comment := models.Comment{ResourceID: resourceID, UserID: userID, Content: content}
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if err := awardTx(tx, userID, PointsCommentCreate, ActionCommentCreate,
			fmt.Sprintf("《%s》", resource.Title)); err != nil {
			return err
		}
		if resource.UserID != userID {
			return notifyTx(tx, resource.UserID, &userID, models.NotificationTypeNewComment,
				fmt.Sprintf("您的资源《%s》收到了新评论", resource.Title),
				"/r/"+resource.Rid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment 评论作者本人或管理员可删
func DeleteComment(commentID, requesterID uint, isAdmin bool) error {
	var comment models.Comment
	if err := db.DB.First(&comment, commentID).Error; err != nil {
		return ErrResourceNotFound
	}
	if comment.UserID != requesterID && !isAdmin {
		return ErrForbidden
	}
	return db.DB.Delete(&comment).Error
}

// ToggleFavorite 收藏开关；重复收藏是静默幂等，不报错
func ToggleFavorite(resourceID, userID uint, add bool) (count int64, err error) {
	var resource models.Resource
	if err := db.DB.First(&resource, resourceID).Error; err != nil {
		return 0, ErrResourceNotFound
	}
	if resource.Status != models.ResourceStatusApproved {
		return 0, ErrNotApproved
	}

	if add {
		var existing models.Favorite
		findErr := db.DB.Where("user_id = ? AND resource_id = ?", userID, resourceID).First(&existing).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			favorite := models.Favorite{UserID: userID, ResourceID: resourceID}
			if createErr := db.DB.Create(&favorite).Error; createErr != nil {
				// 并发重复收藏撞唯一索引，同样按幂等处理
				log.Printf("Failed to create favorite (user=%d resource=%d): %v", userID, resourceID, createErr)
			}
		}
	} else {
		db.DB.Where("user_id = ? AND resource_id = ?", userID, resourceID).Delete(&models.Favorite{})
	}

	db.DB.Model(&models.Favorite{}).Where("resource_id = ?", resourceID).Count(&count)
	return count, nil
}

// UpsertTags 逗号分隔的标签串：去重、trim、按名 upsert 后建立关联
func UpsertTags(tx *gorm.DB, resourceID uint, tagCSV string) error {
	seen := make(map[string]bool)
	for _, raw := range strings.Split(tagCSV, ",") {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var tag models.Tag
		if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return err
		}
		rel := models.TagRelation{ResourceID: resourceID, TagID: tag.ID}
		if err := tx.Where("resource_id = ? AND tag_id = ?", resourceID, tag.ID).
			FirstOrCreate(&rel, rel).Error; err != nil {
			return err
		}
	}
	return nil
}

// ReplaceTags 编辑时整体重建标签关联
func ReplaceTags(resourceID uint, tagCSV string) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.TagRelation{}).Error; err != nil {
			return err
		}
		return UpsertTags(tx, resourceID, tagCSV)
	})
}

// GetResourceTags 查询资源的标签列表
func GetResourceTags(resourceID uint) []models.Tag {
	var tags []models.Tag
	db.DB.Model(&models.Tag{}).
		Joins("JOIN tag_relations ON tag_relations.tag_id = tags.id").
		Where("tag_relations.resource_id = ?", resourceID).
		Order("tags.name ASC").
		Find(&tags)
	return tags
}
