package main

import (
	"fmt"
	"html/template"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"studyshare/internal/db"
	"studyshare/internal/middleware"
	"studyshare/internal/router"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	// Initialize Database
	db.Init()

	// Initialize Gin
	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20 // 上传文件缓冲上限

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("studyshare_session", store))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	r.HTMLRender = loadTemplates("./web/templates")

	// Static Assets
	r.Static("/static", "./web/static")

	// Middleware
	r.Use(middleware.LoadUser())

	// Routes
	router.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("StudyShare server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	includes, err := filepath.Glob(templatesDir + "/includes/*.html")
	if err != nil {
		panic(err)
	}

	// Helper to assemble files
	assemble := func(view string) []string {
		files := make([]string, 0)
		files = append(files, layouts...)
		files = append(files, includes...)
		files = append(files, view)
		return files
	}

	// FuncMap
	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"seq": func(n int) []int {
			s := make([]int, n)
			for i := range s {
				s[i] = i + 1
			}
			return s
		},
		"timeAgo": func(t interface{}) string {
			var timeVal time.Time
			switch v := t.(type) {
			case time.Time:
				timeVal = v
			default:
				return ""
			}

			duration := time.Since(timeVal)
			seconds := int(duration.Seconds())

			if seconds < 60 {
				return fmt.Sprintf("%d秒前", seconds)
			} else if seconds < 3600 {
				return fmt.Sprintf("%d分钟前", seconds/60)
			} else if seconds < 86400 {
				return fmt.Sprintf("%d小时前", seconds/3600)
			} else if seconds < 2592000 {
				return fmt.Sprintf("%d天前", seconds/86400)
			} else if seconds < 31536000 {
				return fmt.Sprintf("%d个月前", seconds/2592000)
			}
			return fmt.Sprintf("%d年前", seconds/31536000)
		},
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
		"urlquery": func(s string) string {
			return url.QueryEscape(s)
		},
		"statusText": func(s string) string {
			switch s {
			case "pending":
				return "待审核"
			case "approved":
				return "已通过"
			case "rejected":
				return "已驳回"
			}
			return s
		},
	}

	// Manual registration to ensure keys match handler expectation
	// Auth
	r.AddFromFilesFuncs("auth/login.html", funcMap, assemble(templatesDir+"/views/auth/login.html")...)
	r.AddFromFilesFuncs("auth/register.html", funcMap, assemble(templatesDir+"/views/auth/register.html")...)
	r.AddFromFilesFuncs("auth/admin_login.html", funcMap, assemble(templatesDir+"/views/auth/admin_login.html")...)
	r.AddFromFilesFuncs("auth/admin_register.html", funcMap, assemble(templatesDir+"/views/auth/admin_register.html")...)
	r.AddFromFilesFuncs("auth/forgot_password.html", funcMap, assemble(templatesDir+"/views/auth/forgot_password.html")...)
	r.AddFromFilesFuncs("auth/reset_password.html", funcMap, assemble(templatesDir+"/views/auth/reset_password.html")...)

	// Resource
	r.AddFromFilesFuncs("resource/list.html", funcMap, assemble(templatesDir+"/views/resource/list.html")...)
	r.AddFromFilesFuncs("resource/detail.html", funcMap, assemble(templatesDir+"/views/resource/detail.html")...)
	r.AddFromFilesFuncs("resource/upload.html", funcMap, assemble(templatesDir+"/views/resource/upload.html")...)
	r.AddFromFilesFuncs("resource/edit.html", funcMap, assemble(templatesDir+"/views/resource/edit.html")...)

	// User
	r.AddFromFilesFuncs("user/profile.html", funcMap, assemble(templatesDir+"/views/user/profile.html")...)

	// Dashboard
	r.AddFromFilesFuncs("dashboard/index.html", funcMap, assemble(templatesDir+"/views/dashboard/index.html")...)
	r.AddFromFilesFuncs("dashboard/uploads.html", funcMap, assemble(templatesDir+"/views/dashboard/uploads.html")...)
	r.AddFromFilesFuncs("dashboard/favorites.html", funcMap, assemble(templatesDir+"/views/dashboard/favorites.html")...)
	r.AddFromFilesFuncs("dashboard/points.html", funcMap, assemble(templatesDir+"/views/dashboard/points.html")...)
	r.AddFromFilesFuncs("dashboard/badges.html", funcMap, assemble(templatesDir+"/views/dashboard/badges.html")...)
	r.AddFromFilesFuncs("dashboard/settings.html", funcMap, assemble(templatesDir+"/views/dashboard/settings.html")...)

	// Notification
	r.AddFromFilesFuncs("notification/list.html", funcMap, assemble(templatesDir+"/views/notification/list.html")...)

	// Admin
	r.AddFromFilesFuncs("admin/dashboard.html", funcMap, assemble(templatesDir+"/views/admin/dashboard.html")...)
	r.AddFromFilesFuncs("admin/moderation.html", funcMap, assemble(templatesDir+"/views/admin/moderation.html")...)
	r.AddFromFilesFuncs("admin/categories.html", funcMap, assemble(templatesDir+"/views/admin/categories.html")...)
	r.AddFromFilesFuncs("admin/users.html", funcMap, assemble(templatesDir+"/views/admin/users.html")...)
	r.AddFromFilesFuncs("admin/activity.html", funcMap, assemble(templatesDir+"/views/admin/activity.html")...)
	r.AddFromFilesFuncs("admin/reports.html", funcMap, assemble(templatesDir+"/views/admin/reports.html")...)

	// Error
	r.AddFromFilesFuncs("error.html", funcMap, assemble(templatesDir+"/views/error.html")...)

	return r
}
