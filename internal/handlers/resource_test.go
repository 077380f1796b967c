package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"studyshare/internal/db"
	"studyshare/internal/middleware"
	"studyshare/internal/models"
	"studyshare/internal/utils"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 同 services 包的测试套路：内存库替换全局连接
func setupTestDB(t *testing.T) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// 内存库必须单连接，否则每个连接各自一个空库
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	db.DB = gdb
}

func seedBrowseData(t *testing.T) *models.User {
	t.Helper()
	sid := "2023000001"
	user := models.User{
		FirstName: "小明",
		LastName:  "王",
		Email:     "browse@example.edu",
		Password:  "hashed",
		Role:      models.RoleStudent,
		Status:    models.UserStatusActive,
		StudentID: &sid,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	category := models.ResourceCategory{Name: "课程笔记"}
	if err := db.DB.Create(&category).Error; err != nil {
		t.Fatalf("Failed to create test category: %v", err)
	}
	resource := models.Resource{
		Rid:        "abcd1234",
		UserID:     user.ID,
		CategoryID: category.ID,
		Title:      "高等数学期末复习提纲",
		FileName:   "review.pdf",
		FilePath:   "abc.pdf",
		FileType:   "pdf",
		FileSize:   1024,
		Status:     models.ResourceStatusApproved,
	}
	if err := db.DB.Create(&resource).Error; err != nil {
		t.Fatalf("Failed to create test resource: %v", err)
	}
	return &user
}

const testFlash = "上传成功，资源将在管理员审核通过后公开。"

// newBrowseRouter 最小化的浏览页路由：会话中间件 + 单模板
// currentUser 返回非 nil 时模拟登录态并带上一条闪存消息
func newBrowseRouter(currentUser func() *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)

	render := multitemplate.NewRenderer()
	render.AddFromString("resource/list.html", "{{.Title}}|{{.Flash}}")

	r := gin.New()
	r.Use(sessions.Sessions("studyshare_session", cookie.NewStore([]byte("test-secret"))))
	r.HTMLRender = render

	h := NewResourceHandler()
	r.GET("/", func(c *gin.Context) {
		if user := currentUser(); user != nil {
			c.Set(middleware.CheckUserKey, user)
			c.Set(middleware.UnreadCountKey, int64(2))
			SetFlash(c, testFlash)
		}
		h.Browse(c)
	})
	return r
}

func TestBrowseCacheHoldsNoRequestState(t *testing.T) {
	setupTestDB(t)
	utils.GetCache().Delete("resource:browse:first")
	user := seedBrowseData(t)

	current := user
	r := newBrowseRouter(func() *models.User { return current })

	// 登录用户带闪存消息访问首页，写入缓存
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), testFlash) {
		t.Fatalf("Logged-in visitor should see their own flash message")
	}

	// 缓存中的渲染数据不得携带任何请求级字段
	cached := utils.GetCache().Get("resource:browse:first")
	if cached == nil {
		t.Fatalf("Unfiltered first page should be cached")
	}
	hData, ok := cached.(gin.H)
	if !ok {
		t.Fatalf("Cached value has unexpected type %T", cached)
	}
	for _, key := range []string{"CurrentUser", "UnreadCount", "Flash", "CurrentPath"} {
		if _, leaked := hData[key]; leaked {
			t.Errorf("Cached page data must not contain request field %q", key)
		}
	}

	// 紧随其后的匿名访问命中缓存，不得看到上一个访客的闪存消息
	current = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on cache hit, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), testFlash) {
		t.Errorf("Anonymous cache hit leaked the previous visitor's flash message")
	}
}

func TestBrowseCacheHitConcurrent(t *testing.T) {
	setupTestDB(t)
	utils.GetCache().Delete("resource:browse:first")
	seedBrowseData(t)

	r := newBrowseRouter(func() *models.User { return nil })

	// 先灌缓存
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	// 多个请求同时命中缓存，各自渲染自己的副本
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusOK {
				t.Errorf("Expected 200 on cache hit, got %d", rec.Code)
			}
		}()
	}
	wg.Wait()
}
