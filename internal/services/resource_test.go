package services

import (
	"errors"
	"testing"

	"studyshare/internal/db"
	"studyshare/internal/models"

	"gorm.io/gorm"
)

func TestApproveResource(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	admin := createTestUser(t, models.RoleAdmin)
	category := createTestCategory(t, "考试资料")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusPending)

	approved, err := ApproveResource(resource.ID, admin.ID)
	if err != nil {
		t.Fatalf("ApproveResource failed: %v", err)
	}
	if approved.Status != models.ResourceStatusApproved {
		t.Errorf("Expected status approved, got %s", approved.Status)
	}

	// 作者应获得积分
	if up := GetUserPoints(owner.ID); up.Points != PointsUploadApproved {
		t.Errorf("Expected owner to have %d points, got %d", PointsUploadApproved, up.Points)
	}

	// 作者应收到站内通知
	var notification models.Notification
	if err := db.DB.Where("user_id = ? AND type = ?", owner.ID, models.NotificationTypeApproved).
		First(&notification).Error; err != nil {
		t.Fatal("Expected an approval notification for the owner")
	}
	if notification.Link != "/r/"+resource.Rid {
		t.Errorf("Notification link = %s, want /r/%s", notification.Link, resource.Rid)
	}

	// 重复审批：状态未变，返回 ErrNoChange，且不重复发积分
	if _, err := ApproveResource(resource.ID, admin.ID); !errors.Is(err, ErrNoChange) {
		t.Errorf("Re-approving should return ErrNoChange, got %v", err)
	}
	if up := GetUserPoints(owner.ID); up.Points != PointsUploadApproved {
		t.Errorf("Re-approval must not re-award points, got %d", up.Points)
	}
}

func TestRejectResource(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	admin := createTestUser(t, models.RoleAdmin)
	category := createTestCategory(t, "考试资料")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusPending)

	// 反馈意见必填
	if _, err := RejectResource(resource.ID, admin.ID, "  "); !errors.Is(err, ErrFeedbackRequired) {
		t.Errorf("Expected ErrFeedbackRequired, got %v", err)
	}

	rejected, err := RejectResource(resource.ID, admin.ID, "文件内容与标题不符")
	if err != nil {
		t.Fatalf("RejectResource failed: %v", err)
	}
	if rejected.Status != models.ResourceStatusRejected || rejected.AdminFeedback != "文件内容与标题不符" {
		t.Errorf("Unexpected rejection result: %+v", rejected)
	}

	// 驳回不发积分
	if up := GetUserPoints(owner.ID); up.Points != 0 {
		t.Errorf("Rejection must not award points, got %d", up.Points)
	}

	// 通知内容应包含反馈意见
	var notification models.Notification
	if err := db.DB.Where("user_id = ? AND type = ?", owner.ID, models.NotificationTypeRejected).
		First(&notification).Error; err != nil {
		t.Fatal("Expected a rejection notification for the owner")
	}

	if _, err := RejectResource(resource.ID, admin.ID, "再次驳回"); !errors.Is(err, ErrNoChange) {
		t.Errorf("Re-rejecting should return ErrNoChange, got %v", err)
	}
}

func TestApproveThenReject(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	admin := createTestUser(t, models.RoleAdmin)
	category := createTestCategory(t, "考试资料")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusPending)

	if _, err := ApproveResource(resource.ID, admin.ID); err != nil {
		t.Fatalf("ApproveResource failed: %v", err)
	}
	// 二次审核：已通过的资源可以被驳回下架
	rejected, err := RejectResource(resource.ID, admin.ID, "收到侵权投诉")
	if err != nil {
		t.Fatalf("RejectResource after approve failed: %v", err)
	}
	if rejected.Status != models.ResourceStatusRejected {
		t.Errorf("Expected status rejected, got %s", rejected.Status)
	}
}

func TestRecordDownload(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	downloader := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusApproved)

	updated, err := RecordDownload(resource.ID, downloader.ID)
	if err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}
	if updated.DownloadCount != 1 {
		t.Errorf("Expected download count 1, got %d", updated.DownloadCount)
	}

	var records int64
	db.DB.Model(&models.DownloadRecord{}).Where("resource_id = ?", resource.ID).Count(&records)
	if records != 1 {
		t.Errorf("Expected 1 download record, got %d", records)
	}

	// 作者获得被下载积分
	if up := GetUserPoints(owner.ID); up.Points != PointsResourceDownloaded {
		t.Errorf("Expected owner to have %d points, got %d", PointsResourceDownloaded, up.Points)
	}

	// 自己下载自己的资源：计数照加，积分不发
	if _, err := RecordDownload(resource.ID, owner.ID); err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}
	if up := GetUserPoints(owner.ID); up.Points != PointsResourceDownloaded {
		t.Errorf("Self-download must not award points, got %d", up.Points)
	}
}

func TestRecordDownloadRequiresApproval(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	downloader := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusPending)

	if _, err := RecordDownload(resource.ID, downloader.ID); !errors.Is(err, ErrNotApproved) {
		t.Errorf("Expected ErrNotApproved for pending resource, got %v", err)
	}
}

func TestRateResourceUpsert(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	rater := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusApproved)

	if _, err := RateResource(resource.ID, rater.ID, 0); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("Score 0 should be invalid, got %v", err)
	}
	if _, err := RateResource(resource.ID, rater.ID, 6); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("Score 6 should be invalid, got %v", err)
	}

	created, err := RateResource(resource.ID, rater.ID, 4)
	if err != nil {
		t.Fatalf("RateResource failed: %v", err)
	}
	if !created {
		t.Error("First rating should report created")
	}

	// 重复评分：覆盖旧分，只保留一行
	created, err = RateResource(resource.ID, rater.ID, 2)
	if err != nil {
		t.Fatalf("RateResource failed: %v", err)
	}
	if created {
		t.Error("Second rating should report updated, not created")
	}

	var ratings []models.Rating
	db.DB.Where("resource_id = ? AND user_id = ?", resource.ID, rater.ID).Find(&ratings)
	if len(ratings) != 1 {
		t.Fatalf("Expected a single rating row, got %d", len(ratings))
	}
	if ratings[0].Score != 2 {
		t.Errorf("Expected score 2 after update, got %d", ratings[0].Score)
	}

	// 首次评分发积分，更新不重复发
	if up := GetUserPoints(rater.ID); up.Points != PointsRatingCreate {
		t.Errorf("Expected rater to have %d points, got %d", PointsRatingCreate, up.Points)
	}
}

func TestCommentResource(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	commenter := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusApproved)

	if _, err := CommentResource(resource.ID, commenter.ID, "   "); !errors.Is(err, ErrEmptyComment) {
		t.Errorf("Expected ErrEmptyComment, got %v", err)
	}

	comment, err := CommentResource(resource.ID, commenter.ID, "非常有帮助，谢谢分享！")
	if err != nil {
		t.Fatalf("CommentResource failed: %v", err)
	}
	if comment.ID == 0 {
		t.Error("Expected persisted comment")
	}

	if up := GetUserPoints(commenter.ID); up.Points != PointsCommentCreate {
		t.Errorf("Expected commenter to have %d points, got %d", PointsCommentCreate, up.Points)
	}

	// 作者收到通知
	var count int64
	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", owner.ID, models.NotificationTypeNewComment).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 comment notification, got %d", count)
	}

	// 评论自己的资源不自我通知
	if _, err := CommentResource(resource.ID, owner.ID, "自己补充一点说明"); err != nil {
		t.Fatalf("CommentResource failed: %v", err)
	}
	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", owner.ID, models.NotificationTypeNewComment).Count(&count)
	if count != 1 {
		t.Errorf("Self-comment must not notify, got %d notifications", count)
	}
}

func TestToggleFavoriteIdempotent(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	user := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusApproved)

	count, err := ToggleFavorite(resource.ID, user.ID, true)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected favorite count 1, got %d", count)
	}

	// 重复收藏静默幂等
	count, err = ToggleFavorite(resource.ID, user.ID, true)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Duplicate favorite should keep count at 1, got %d", count)
	}

	// 取消收藏
	count, err = ToggleFavorite(resource.ID, user.ID, false)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected favorite count 0, got %d", count)
	}

	// 重复取消同样幂等
	if _, err := ToggleFavorite(resource.ID, user.ID, false); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
}

func TestDeleteResourceCascade(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	other := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusApproved)

	if _, err := CommentResource(resource.ID, other.ID, "不错"); err != nil {
		t.Fatalf("CommentResource failed: %v", err)
	}
	if _, err := RateResource(resource.ID, other.ID, 5); err != nil {
		t.Fatalf("RateResource failed: %v", err)
	}
	if _, err := ToggleFavorite(resource.ID, other.ID, true); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if _, err := RecordDownload(resource.ID, other.ID); err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}
	if err := db.DB.Transaction(func(tx *gorm.DB) error {
		return UpsertTags(tx, resource.ID, "高数, 期末")
	}); err != nil {
		t.Fatalf("UpsertTags failed: %v", err)
	}

	// 非作者非管理员不可删
	if err := DeleteResource(resource.ID, other.ID, false); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}

	if err := DeleteResource(resource.ID, owner.ID, false); err != nil {
		t.Fatalf("DeleteResource failed: %v", err)
	}

	// 关联行应全部清掉
	checks := []struct {
		name  string
		model interface{}
	}{
		{"comments", &models.Comment{}},
		{"ratings", &models.Rating{}},
		{"favorites", &models.Favorite{}},
		{"download records", &models.DownloadRecord{}},
		{"tag relations", &models.TagRelation{}},
	}
	for _, check := range checks {
		var count int64
		db.DB.Model(check.model).Where("resource_id = ?", resource.ID).Count(&count)
		if count != 0 {
			t.Errorf("Expected no orphan %s, got %d", check.name, count)
		}
	}

	if err := DeleteResource(resource.ID, owner.ID, false); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Deleting again should return ErrResourceNotFound, got %v", err)
	}
}

func TestReplaceTags(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusApproved)

	// 逗号分隔，去重 + trim
	if err := db.DB.Transaction(func(tx *gorm.DB) error {
		return UpsertTags(tx, resource.ID, " 高数 ,期末, 高数 ,,复习")
	}); err != nil {
		t.Fatalf("UpsertTags failed: %v", err)
	}
	tags := GetResourceTags(resource.ID)
	if len(tags) != 3 {
		t.Fatalf("Expected 3 tags, got %d", len(tags))
	}

	if err := ReplaceTags(resource.ID, "线代"); err != nil {
		t.Fatalf("ReplaceTags failed: %v", err)
	}
	tags = GetResourceTags(resource.ID)
	if len(tags) != 1 || tags[0].Name != "线代" {
		t.Errorf("Expected single tag 线代, got %+v", tags)
	}

	// 旧标签本身保留，便于复用
	var tagCount int64
	db.DB.Model(&models.Tag{}).Count(&tagCount)
	if tagCount != 4 {
		t.Errorf("Expected 4 tags overall, got %d", tagCount)
	}
}

func TestCommentRequiresApproval(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	commenter := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusPending)

	if _, err := CommentResource(resource.ID, commenter.ID, "讲得很清楚"); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("Expected ErrNotApproved, got %v", err)
	}

	var count int64
	db.DB.Model(&models.Comment{}).Count(&count)
	if count != 0 {
		t.Errorf("Unapproved resource should have no comments, got %d", count)
	}
}

// 评分写入撞唯一索引时只回滚保存点，外层事务应当还能继续写
func TestRatingDuplicateInsertKeepsTransactionUsable(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, models.RoleStudent)
	rater := createTestUser(t, models.RoleStudent)
	category := createTestCategory(t, "课程笔记")
	resource := createTestResource(t, owner.ID, category.ID, models.ResourceStatusApproved)

	first := models.Rating{ResourceID: resource.ID, UserID: rater.ID, Score: 4}
	if err := db.DB.Create(&first).Error; err != nil {
		t.Fatalf("Failed to create rating: %v", err)
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		dup := models.Rating{ResourceID: resource.ID, UserID: rater.ID, Score: 5}
		createErr := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&dup).Error
		})
		if createErr == nil {
			t.Fatal("Duplicate rating insert should fail on the unique index")
		}
		return tx.Model(&models.Rating{}).
			Where("resource_id = ? AND user_id = ?", resource.ID, rater.ID).
			Update("score", 5).Error
	})
	if err != nil {
		t.Fatalf("Transaction should survive the rolled-back insert: %v", err)
	}

	var ratings []models.Rating
	db.DB.Where("resource_id = ?", resource.ID).Find(&ratings)
	if len(ratings) != 1 || ratings[0].Score != 5 {
		t.Errorf("Expected single rating with score 5, got %+v", ratings)
	}
}
