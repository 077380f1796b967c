package router

import (
	"studyshare/internal/handlers"
	"studyshare/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Handlers
	authHandler := handlers.NewAuthHandler()
	resourceHandler := handlers.NewResourceHandler()
	interactHandler := handlers.NewInteractHandler()
	userHandler := handlers.NewUserHandler()
	notificationHandler := handlers.NewNotificationHandler()
	adminHandler := handlers.NewAdminHandler()

	// 公共路由 (Public Routes)
	r.GET("/", resourceHandler.Browse)    // 首页 - 资源广场
	r.GET("/r/:rid", resourceHandler.Detail) // 资源详情页
	r.GET("/u/:id", userHandler.Profile)  // 用户主页

	r.GET("/register", authHandler.ShowRegister) // 注册页面
	r.POST("/register", authHandler.Register)    // 提交注册
	r.GET("/login", authHandler.ShowLogin)       // 登录页面
	r.POST("/login", authHandler.Login)          // 提交登录
	r.GET("/logout", authHandler.Logout)         // 退出登录

	r.GET("/forgot-password", authHandler.ShowForgotPassword) // 找回密码页面
	r.POST("/forgot-password", authHandler.ForgotPassword)    // 提交找回密码
	r.GET("/reset-password", authHandler.ShowResetPassword)   // 重置密码页面
	r.POST("/reset-password", authHandler.ResetPassword)      // 提交新密码

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/upload", resourceHandler.ShowUpload)      // 上传资源页面
		authorized.POST("/upload", resourceHandler.Upload)         // 提交上传
		authorized.GET("/r/:rid/download", resourceHandler.Download) // 下载文件
		authorized.GET("/r/:rid/edit", resourceHandler.ShowEdit)   // 编辑资源页面
		authorized.POST("/r/:rid/edit", resourceHandler.Update)    // 提交资源更新
		authorized.DELETE("/r/:rid", resourceHandler.Delete)       // 删除资源

		authorized.POST("/resource/:id/comment", interactHandler.Comment)     // 发表评论
		authorized.DELETE("/comment/:id", interactHandler.DeleteComment)      // 删除评论
		authorized.POST("/resource/:id/rate", interactHandler.Rate)           // 评分
		authorized.POST("/resource/:id/favorite", interactHandler.Favorite)   // 收藏
		authorized.DELETE("/resource/:id/favorite", interactHandler.Unfavorite) // 取消收藏

		authorized.GET("/notifications", notificationHandler.List)              // 我的通知列表
		authorized.GET("/notifications/:id/read", notificationHandler.Read)     // 标记已读并跳转
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll) // 全部标记为已读
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)     // 删除单条通知
	}

	// 个人中心路由 (Dashboard Routes)
	dashboard := r.Group("/dashboard")
	dashboard.Use(middleware.AuthRequired())
	{
		dashboard.GET("", userHandler.Dashboard)                // 个人中心概览
		dashboard.GET("/uploads", userHandler.MyUploads)        // 我的上传
		dashboard.GET("/favorites", userHandler.MyFavorites)    // 我的收藏
		dashboard.GET("/points", userHandler.PointLogs)         // 积分明细
		dashboard.GET("/badges", userHandler.Badges)            // 徽章墙
		dashboard.GET("/settings", userHandler.ShowSettings)    // 账号设置页面
		dashboard.POST("/settings", userHandler.UpdateSettings) // 提交账号设置
	}

	// 管理后台路由 (Admin Routes)
	r.GET("/admin/login", authHandler.ShowAdminLogin)       // 管理员登录页面
	r.POST("/admin/login", authHandler.AdminLogin)          // 管理员登录
	r.GET("/admin/register", authHandler.ShowAdminRegister) // 管理员注册页面
	r.POST("/admin/register", authHandler.AdminRegister)    // 管理员注册（需要注册码）

	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("", adminHandler.Dashboard) // 后台概览

		admin.GET("/moderation", adminHandler.ModerationQueue)  // 审核队列
		admin.POST("/resource/:id/approve", adminHandler.Approve) // 通过审核
		admin.POST("/resource/:id/reject", adminHandler.Reject)   // 驳回

		admin.GET("/categories", adminHandler.CategoryList)          // 分类管理
		admin.POST("/categories", adminHandler.CreateCategory)       // 新建分类
		admin.POST("/categories/:id", adminHandler.UpdateCategory)   // 更新分类
		admin.DELETE("/categories/:id", adminHandler.DeleteCategory) // 删除分类

		admin.GET("/users", adminHandler.UserList)                 // 用户管理
		admin.POST("/users/:id/toggle", adminHandler.ToggleUserStatus) // 启用/停用
		admin.POST("/users/:id/role", adminHandler.ChangeUserRole)     // 调整角色

		admin.GET("/activity", adminHandler.ActivityLogs) // 审计日志
		admin.GET("/reports", adminHandler.Reports)       // 使用报表与 CSV 导出
	}
}
