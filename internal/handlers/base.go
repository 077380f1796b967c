package handlers

import (
	"net/http"
	"studyshare/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const flashKey = "flash"

// cloneH 浅拷贝渲染数据
// Render 会就地写入请求级字段，放进共享缓存的数据渲染前必须先复制
func cloneH(src gin.H) gin.H {
	dst := make(gin.H, len(src)+4)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	// Inject Current User
	if user, exists := c.Get(middleware.CheckUserKey); exists {
		obj["CurrentUser"] = user
		if count, ok := c.Get(middleware.UnreadCountKey); ok {
			obj["UnreadCount"] = int(count.(int64))
		} else {
			obj["UnreadCount"] = 0
		}
	}

	// 闪存消息：取出即清除，只显示一次
	if flash := PopFlash(c); flash != "" {
		obj["Flash"] = flash
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError 统一的错误页
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message})
}

// SetFlash 写入一次性提示消息，下一次渲染时显示
func SetFlash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.Set(flashKey, message)
	session.Save()
}

// PopFlash 取出并清除闪存消息
func PopFlash(c *gin.Context) string {
	session := sessions.Default(c)
	v := session.Get(flashKey)
	if v == nil {
		return ""
	}
	session.Delete(flashKey)
	session.Save()
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// JSONSuccess AJAX 接口统一成功响应
func JSONSuccess(c *gin.Context, message string, extra gin.H) {
	payload := gin.H{"success": true, "message": message}
	for k, v := range extra {
		payload[k] = v
	}
	c.JSON(http.StatusOK, payload)
}

// JSONFail AJAX 接口统一失败响应
func JSONFail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "message": message})
}
