package handlers

import (
	"net/http"

	"studyshare/internal/middleware"
	"studyshare/internal/models"
	"studyshare/internal/services"
	"studyshare/internal/utils"

	"github.com/gin-gonic/gin"
)

// InteractHandler 评论、评分、收藏的 AJAX 接口
type InteractHandler struct{}

func NewInteractHandler() *InteractHandler {
	return &InteractHandler{}
}

// Comment 发表评论
func (h *InteractHandler) Comment(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	resourceID := utils.StringToUint(c.Param("id"))

	comment, err := services.CommentResource(resourceID, user.ID, c.PostForm("content"))
	if err != nil {
		switch err {
		case services.ErrEmptyComment:
			JSONFail(c, http.StatusBadRequest, "评论内容不能为空")
		case services.ErrResourceNotFound:
			JSONFail(c, http.StatusNotFound, "资源不存在")
		case services.ErrNotApproved:
			JSONFail(c, http.StatusForbidden, "资源尚未通过审核")
		default:
			JSONFail(c, http.StatusInternalServerError, "评论失败，请稍后再试")
		}
		return
	}

	JSONSuccess(c, "评论成功", gin.H{"comment_id": comment.ID})
}

// DeleteComment 删除评论，作者本人或管理员
func (h *InteractHandler) DeleteComment(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	commentID := utils.StringToUint(c.Param("id"))

	if err := services.DeleteComment(commentID, user.ID, user.IsAdmin()); err != nil {
		if err == services.ErrForbidden {
			JSONFail(c, http.StatusForbidden, "无权删除此评论")
			return
		}
		JSONFail(c, http.StatusNotFound, "评论不存在")
		return
	}

	JSONSuccess(c, "评论已删除", nil)
}

// Rate 评分，重复提交覆盖旧分
func (h *InteractHandler) Rate(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	resourceID := utils.StringToUint(c.Param("id"))
	score := utils.StringToInt(c.PostForm("score"))

	created, err := services.RateResource(resourceID, user.ID, score)
	if err != nil {
		switch err {
		case services.ErrInvalidRating:
			JSONFail(c, http.StatusBadRequest, "评分必须在 1 到 5 之间")
		case services.ErrResourceNotFound:
			JSONFail(c, http.StatusNotFound, "资源不存在")
		case services.ErrNotApproved:
			JSONFail(c, http.StatusForbidden, "资源尚未通过审核")
		default:
			JSONFail(c, http.StatusInternalServerError, "评分失败，请稍后再试")
		}
		return
	}

	msg := "评分已更新"
	if created {
		msg = "评分成功"
	}
	JSONSuccess(c, msg, nil)
}

// Favorite 收藏
func (h *InteractHandler) Favorite(c *gin.Context) {
	h.toggleFavorite(c, true)
}

// Unfavorite 取消收藏
func (h *InteractHandler) Unfavorite(c *gin.Context) {
	h.toggleFavorite(c, false)
}

func (h *InteractHandler) toggleFavorite(c *gin.Context, add bool) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	resourceID := utils.StringToUint(c.Param("id"))

	count, err := services.ToggleFavorite(resourceID, user.ID, add)
	if err != nil {
		switch err {
		case services.ErrResourceNotFound:
			JSONFail(c, http.StatusNotFound, "资源不存在")
		case services.ErrNotApproved:
			JSONFail(c, http.StatusForbidden, "资源尚未通过审核")
		default:
			JSONFail(c, http.StatusInternalServerError, "操作失败，请稍后再试")
		}
		return
	}

	msg := "已取消收藏"
	if add {
		msg = "收藏成功"
	}
	JSONSuccess(c, msg, gin.H{"favorite_count": count})
}
