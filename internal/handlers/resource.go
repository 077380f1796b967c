package handlers

import (
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"studyshare/internal/db"
	"studyshare/internal/middleware"
	"studyshare/internal/models"
	"studyshare/internal/services"
	"studyshare/internal/utils"

	"github.com/gin-gonic/gin"
)

type ResourceHandler struct{}

func NewResourceHandler() *ResourceHandler {
	return &ResourceHandler{}
}

const perPage = 20

// fillResourceStats 批量填充资源的评论数与评分统计
func fillResourceStats(resources []models.Resource) {
	if len(resources) == 0 {
		return
	}

	resourceIDs := make([]uint, len(resources))
	for i, r := range resources {
		resourceIDs[i] = r.ID
	}

	type countResult struct {
		ResourceID uint
		Count      int
	}
	var commentCounts []countResult
	db.DB.Model(&models.Comment{}).
		Select("resource_id, COUNT(*) as count").
		Where("resource_id IN ?", resourceIDs).
		Group("resource_id").
		Scan(&commentCounts)

	commentMap := make(map[uint]int)
	for _, r := range commentCounts {
		commentMap[r.ResourceID] = r.Count
	}

	type ratingResult struct {
		ResourceID uint
		Avg        float64
		Count      int
	}
	var ratingStats []ratingResult
	db.DB.Model(&models.Rating{}).
		Select("resource_id, AVG(score) as avg, COUNT(*) as count").
		Where("resource_id IN ?", resourceIDs).
		Group("resource_id").
		Scan(&ratingStats)

	ratingMap := make(map[uint]ratingResult)
	for _, r := range ratingStats {
		ratingMap[r.ResourceID] = r
	}

	for i := range resources {
		resources[i].CommentCount = commentMap[resources[i].ID]
		if stat, ok := ratingMap[resources[i].ID]; ok {
			resources[i].AvgRating = math.Round(stat.Avg*10) / 10
			resources[i].RatingCount = stat.Count
		}
	}
}

// applySort 把排序参数翻译成 ORDER BY，评分排序用子查询聚合
func applySort(sort string) string {
	switch sort {
	case "oldest":
		return "resources.created_at ASC"
	case "title":
		return "resources.title ASC"
	case "downloads":
		return "resources.download_count DESC, resources.created_at DESC"
	case "rating":
		return "(SELECT COALESCE(AVG(score), 0) FROM ratings WHERE ratings.resource_id = resources.id) DESC"
	default: // newest
		return "resources.created_at DESC"
	}
}

// Browse 资源浏览页，公开访问只看已通过的资源
func (h *ResourceHandler) Browse(c *gin.Context) {
	page := 1
	if p := c.Query("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}

	categoryID := utils.StringToUint(c.Query("category"))
	search := c.Query("search")
	sort := c.DefaultQuery("sort", "newest")

	// 只有无筛选的第一页走缓存，和写路径的失效配合
	cacheable := categoryID == 0 && search == "" && sort == "newest" && page == 1
	cacheKey := "resource:browse:first"
	if cacheable {
		if cachedData := utils.GetCache().Get(cacheKey); cachedData != nil {
			if hData, ok := cachedData.(gin.H); ok {
				Render(c, http.StatusOK, "resource/list.html", cloneH(hData))
				return
			}
		}
	}

	query := db.DB.Model(&models.Resource{}).Where("resources.status = ?", models.ResourceStatusApproved)
	if categoryID > 0 {
		query = query.Where("resources.category_id = ?", categoryID)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("resources.title ILIKE ? OR resources.description ILIKE ?", pattern, pattern)
	}

	var total int64
	query.Count(&total)

	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var resources []models.Resource
	query.Preload("User").Preload("Category").
		Order(applySort(sort)).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&resources)

	fillResourceStats(resources)

	var categories []models.ResourceCategory
	db.DB.Order("id ASC").Find(&categories)

	renderData := gin.H{
		"Resources":   resources,
		"Categories":  categories,
		"Title":       "资源广场",
		"Search":      search,
		"Sort":        sort,
		"CategoryID":  categoryID,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"Total":       total,
	}

	if cacheable {
		utils.GetCache().Set(cacheKey, renderData, 1*time.Minute)
	}

	Render(c, http.StatusOK, "resource/list.html", cloneH(renderData))
}

// Detail 资源详情页；未通过的资源只有作者和管理员可见
func (h *ResourceHandler) Detail(c *gin.Context) {
	rid := c.Param("rid")

	var resource models.Resource
	if err := db.DB.Preload("User").Preload("Category").Where("rid = ?", rid).First(&resource).Error; err != nil {
		RenderError(c, http.StatusNotFound, "资源不存在")
		return
	}

	user := middleware.CurrentUser(c)
	if resource.Status != models.ResourceStatusApproved {
		if user == nil || (user.ID != resource.UserID && !user.IsAdmin()) {
			RenderError(c, http.StatusNotFound, "资源不存在")
			return
		}
	}

	services.RecordView(resource.ID)
	resource.ViewCount++

	var comments []models.Comment
	db.DB.Preload("User").Where("resource_id = ?", resource.ID).Order("created_at ASC").Find(&comments)

	type RenderedComment struct {
		models.Comment
		ContentHTML template.HTML
		Floor       int
	}
	renderedComments := make([]RenderedComment, len(comments))
	for i, com := range comments {
		renderedComments[i] = RenderedComment{
			Comment:     com,
			ContentHTML: utils.RenderMarkdown(com.Content),
			Floor:       i + 1,
		}
	}

	single := []models.Resource{resource}
	fillResourceStats(single)
	resource = single[0]

	myRating := 0
	isFavorited := false
	if user != nil {
		var rating models.Rating
		if err := db.DB.Where("resource_id = ? AND user_id = ?", resource.ID, user.ID).First(&rating).Error; err == nil {
			myRating = rating.Score
		}
		var favorite models.Favorite
		if err := db.DB.Where("resource_id = ? AND user_id = ?", resource.ID, user.ID).First(&favorite).Error; err == nil {
			isFavorited = true
		}
	}

	var favoriteCount int64
	db.DB.Model(&models.Favorite{}).Where("resource_id = ?", resource.ID).Count(&favoriteCount)

	Render(c, http.StatusOK, "resource/detail.html", gin.H{
		"Title":         resource.Title,
		"Resource":      resource,
		"Description":   utils.RenderMarkdown(resource.Description),
		"Comments":      renderedComments,
		"Tags":          services.GetResourceTags(resource.ID),
		"MyRating":      myRating,
		"IsFavorited":   isFavorited,
		"FavoriteCount": favoriteCount,
		"FileSize":      utils.FormatFileSize(resource.FileSize),
	})
}

func (h *ResourceHandler) ShowUpload(c *gin.Context) {
	var categories []models.ResourceCategory
	db.DB.Order("id ASC").Find(&categories)

	Render(c, http.StatusOK, "resource/upload.html", gin.H{
		"Title":      "上传资源",
		"Categories": categories,
	})
}

func (h *ResourceHandler) renderUpload(c *gin.Context, code int, errMsg string) {
	var categories []models.ResourceCategory
	db.DB.Order("id ASC").Find(&categories)
	Render(c, code, "resource/upload.html", gin.H{
		"Title":      "上传资源",
		"Error":      errMsg,
		"Categories": categories,
	})
}

// Upload 上传资源，入库即待审核状态
func (h *ResourceHandler) Upload(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	title := c.PostForm("title")
	description := c.PostForm("description")
	tags := c.PostForm("tags")
	categoryID := utils.StringToUint(c.PostForm("category_id"))

	if title == "" {
		h.renderUpload(c, http.StatusBadRequest, "标题不能为空")
		return
	}

	var category models.ResourceCategory
	if err := db.DB.First(&category, categoryID).Error; err != nil {
		h.renderUpload(c, http.StatusBadRequest, "请选择有效的分类")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.renderUpload(c, http.StatusBadRequest, "请选择要上传的文件")
		return
	}

	stored, err := services.SaveUpload(fileHeader)
	if err != nil {
		h.renderUpload(c, http.StatusInternalServerError, "文件保存失败，请稍后再试")
		return
	}

	resource := models.Resource{
		Rid:         utils.RandString(8),
		UserID:      user.ID,
		CategoryID:  category.ID,
		Title:       title,
		Description: description,
		FileName:    stored.Name,
		FilePath:    stored.Path,
		FileType:    stored.Ext,
		FileSize:    stored.Size,
		Status:      models.ResourceStatusPending,
	}

	if err := db.DB.Create(&resource).Error; err != nil {
		services.DeleteStored(stored.Path)
		h.renderUpload(c, http.StatusInternalServerError, "发布失败")
		return
	}

	if err := services.UpsertTags(db.DB, resource.ID, tags); err != nil {
		// 标签失败不拦截上传本身
		log.Printf("Failed to upsert tags for resource %d: %v\n", resource.ID, err)
	}

	services.RecordActivity(user.ID, services.AuditUploadResource,
		fmt.Sprintf("《%s》", resource.Title), c.ClientIP())

	SetFlash(c, "上传成功，资源将在管理员审核通过后公开。")
	c.Redirect(http.StatusFound, "/dashboard/uploads")
}

// Download 下载文件，只放行已通过的资源
func (h *ResourceHandler) Download(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	rid := c.Param("rid")

	var resource models.Resource
	if err := db.DB.Where("rid = ?", rid).First(&resource).Error; err != nil {
		RenderError(c, http.StatusNotFound, "资源不存在")
		return
	}

	updated, err := services.RecordDownload(resource.ID, user.ID)
	if err != nil {
		RenderError(c, http.StatusForbidden, "资源尚未通过审核，无法下载")
		return
	}

	services.RecordActivity(user.ID, services.AuditDownload,
		fmt.Sprintf("《%s》", updated.Title), c.ClientIP())

	c.FileAttachment(services.FullFilePath(updated.FilePath), updated.FileName)
}

func (h *ResourceHandler) ShowEdit(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	rid := c.Param("rid")

	var resource models.Resource
	if err := db.DB.Where("rid = ?", rid).First(&resource).Error; err != nil {
		RenderError(c, http.StatusNotFound, "资源不存在")
		return
	}

	if resource.UserID != user.ID && !user.IsAdmin() {
		RenderError(c, http.StatusForbidden, "无权编辑此资源")
		return
	}

	var categories []models.ResourceCategory
	db.DB.Order("id ASC").Find(&categories)

	tagNames := ""
	for i, tag := range services.GetResourceTags(resource.ID) {
		if i > 0 {
			tagNames += ", "
		}
		tagNames += tag.Name
	}

	Render(c, http.StatusOK, "resource/edit.html", gin.H{
		"Title":      "编辑资源",
		"Resource":   resource,
		"Categories": categories,
		"TagNames":   tagNames,
	})
}

// Update 更新元数据；被驳回的资源修改后回到待审核
func (h *ResourceHandler) Update(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	rid := c.Param("rid")

	var resource models.Resource
	if err := db.DB.Where("rid = ?", rid).First(&resource).Error; err != nil {
		RenderError(c, http.StatusNotFound, "资源不存在")
		return
	}

	if resource.UserID != user.ID && !user.IsAdmin() {
		RenderError(c, http.StatusForbidden, "无权编辑此资源")
		return
	}

	title := c.PostForm("title")
	if title == "" {
		RenderError(c, http.StatusBadRequest, "标题不能为空")
		return
	}

	categoryID := utils.StringToUint(c.PostForm("category_id"))
	if categoryID == 0 {
		categoryID = resource.CategoryID
	}

	updates := map[string]interface{}{
		"title":       title,
		"description": c.PostForm("description"),
		"category_id": categoryID,
	}
	if resource.Status == models.ResourceStatusRejected {
		updates["status"] = models.ResourceStatusPending
		updates["admin_feedback"] = ""
	}

	if err := db.DB.Model(&resource).Updates(updates).Error; err != nil {
		RenderError(c, http.StatusInternalServerError, "保存失败")
		return
	}

	if err := services.ReplaceTags(resource.ID, c.PostForm("tags")); err != nil {
		log.Printf("Failed to replace tags for resource %d: %v\n", resource.ID, err)
	}

	utils.GetCache().Delete("resource:browse:first")
	services.RecordActivity(user.ID, services.AuditEditResource,
		fmt.Sprintf("《%s》", title), c.ClientIP())

	c.Redirect(http.StatusFound, "/r/"+rid)
}

// Delete 删除资源，作者本人或管理员
func (h *ResourceHandler) Delete(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	rid := c.Param("rid")

	var resource models.Resource
	if err := db.DB.Where("rid = ?", rid).First(&resource).Error; err != nil {
		JSONFail(c, http.StatusNotFound, "资源不存在")
		return
	}

	if err := services.DeleteResource(resource.ID, user.ID, user.IsAdmin()); err != nil {
		if err == services.ErrForbidden {
			JSONFail(c, http.StatusForbidden, "无权删除此资源")
			return
		}
		JSONFail(c, http.StatusInternalServerError, "删除失败，请稍后再试")
		return
	}

	utils.GetCache().Delete("resource:browse:first")
	services.RecordActivity(user.ID, services.AuditDeleteResource,
		fmt.Sprintf("《%s》", resource.Title), c.ClientIP())

	JSONSuccess(c, "资源已删除", nil)
}
