package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	"studyshare/internal/db"
	"studyshare/internal/models"
	"studyshare/internal/services"
	"studyshare/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	mailService    *services.MailService
	captchaService *services.CaptchaService
}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		mailService:    services.NewMailService(),
		captchaService: services.NewCaptchaService(),
	}
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", nil)
}

func (h *AuthHandler) ShowAdminLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/admin_login.html", nil)
}

// Login 学生/教师登录
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, false)
}

// AdminLogin 管理员登录，独立入口
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, true)
}

func (h *AuthHandler) login(c *gin.Context, wantAdmin bool) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	page := "auth/login.html"
	if wantAdmin {
		page = "auth/admin_login.html"
	}

	var user models.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		Render(c, http.StatusUnauthorized, page, gin.H{"Error": "邮箱或密码错误"})
		return
	}

	// 角色与入口不匹配按凭证错误处理，不暴露账号角色
	if user.IsAdmin() != wantAdmin {
		Render(c, http.StatusUnauthorized, page, gin.H{"Error": "邮箱或密码错误"})
		return
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		Render(c, http.StatusUnauthorized, page, gin.H{"Error": "邮箱或密码错误"})
		return
	}

	if !user.IsActive() {
		Render(c, http.StatusForbidden, page, gin.H{"Error": "您的账号已被停用，无法登录。"})
		return
	}

	// 重建会话，防止会话固定
	session := sessions.Default(c)
	session.Clear()
	session.Set("user_id", user.ID)
	session.Save()

	now := time.Now()
	db.DB.Model(&user).Update("last_login", &now)

	services.RecordActivity(user.ID, services.AuditLogin, "", c.ClientIP())

	// 登录奖励，同一自然日只发一次，异步不阻塞响应
	go func(uid uint) {
		_, _ = services.GrantLoginBonus(uid)
	}(user.ID)

	if user.IsAdmin() {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set("captcha_answer", answer)
	session.Save()
	Render(c, http.StatusOK, "auth/register.html", gin.H{"Captcha": question})
}

func (h *AuthHandler) renderRegister(c *gin.Context, code int, errMsg string, extra gin.H) {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set("captcha_answer", answer)
	session.Save()

	data := gin.H{"Error": errMsg, "Captcha": question}
	for k, v := range extra {
		data[k] = v
	}
	Render(c, code, "auth/register.html", data)
}

// Register 学生注册
func (h *AuthHandler) Register(c *gin.Context) {
	firstName := strings.TrimSpace(c.PostForm("first_name"))
	lastName := strings.TrimSpace(c.PostForm("last_name"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	studentID := strings.TrimSpace(c.PostForm("student_id"))
	department := strings.TrimSpace(c.PostForm("department"))
	yearOfStudy := utils.StringToInt(c.PostForm("year_of_study"))
	captchaInput := c.PostForm("captcha")

	session := sessions.Default(c)
	expectedAnswer, ok := session.Get("captcha_answer").(int)
	if !ok || utils.StringToInt(captchaInput) != expectedAnswer {
		h.renderRegister(c, http.StatusBadRequest, "验证码错误", nil)
		return
	}
	session.Delete("captcha_answer")
	session.Save()

	if firstName == "" || lastName == "" || studentID == "" || department == "" {
		h.renderRegister(c, http.StatusBadRequest, "请填写完整的注册信息", nil)
		return
	}
	if !strings.Contains(email, "@") {
		h.renderRegister(c, http.StatusBadRequest, "邮箱格式不正确", nil)
		return
	}
	if len(password) < 6 {
		h.renderRegister(c, http.StatusBadRequest, "密码至少6位", nil)
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		h.renderRegister(c, http.StatusInternalServerError, "系统错误，请稍后再试", nil)
		return
	}

	user := models.User{
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Password:    hash,
		Role:        models.RoleStudent,
		Status:      models.UserStatusActive,
		StudentID:   &studentID,
		Department:  department,
		YearOfStudy: yearOfStudy,
	}

	if err := db.DB.Create(&user).Error; err != nil {
		// 邮箱或学号撞唯一索引
		h.renderRegister(c, http.StatusConflict, "邮箱或学号已被注册", nil)
		return
	}

	services.RecordActivity(user.ID, services.AuditRegister, fmt.Sprintf("学号 %s", studentID), c.ClientIP())

	Render(c, http.StatusOK, "auth/login.html", gin.H{"Success": "注册成功，请登录。"})
}

// AdminRegister 管理员注册，需要注册码
func (h *AuthHandler) AdminRegister(c *gin.Context) {
	firstName := strings.TrimSpace(c.PostForm("first_name"))
	lastName := strings.TrimSpace(c.PostForm("last_name"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	regCode := c.PostForm("admin_code")

	expected := os.Getenv("ADMIN_REG_CODE")
	if expected == "" || regCode != expected {
		Render(c, http.StatusForbidden, "auth/admin_register.html", gin.H{"Error": "管理员注册码错误"})
		return
	}

	if firstName == "" || lastName == "" || !strings.Contains(email, "@") || len(password) < 6 {
		Render(c, http.StatusBadRequest, "auth/admin_register.html", gin.H{"Error": "请检查填写的注册信息"})
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		Render(c, http.StatusInternalServerError, "auth/admin_register.html", gin.H{"Error": "系统错误，请稍后再试"})
		return
	}

	user := models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  hash,
		Role:      models.RoleAdmin,
		Status:    models.UserStatusActive,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		Render(c, http.StatusConflict, "auth/admin_register.html", gin.H{"Error": "邮箱已注册"})
		return
	}

	services.RecordActivity(user.ID, services.AuditRegister, "管理员注册", c.ClientIP())
	Render(c, http.StatusOK, "auth/admin_login.html", gin.H{"Success": "注册成功，请登录。"})
}

func (h *AuthHandler) ShowAdminRegister(c *gin.Context) {
	Render(c, http.StatusOK, "auth/admin_register.html", nil)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowForgotPassword(c *gin.Context) {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set("reset_captcha_answer", answer)
	session.Save()
	Render(c, http.StatusOK, "auth/forgot_password.html", gin.H{"Captcha": question})
}

// ForgotPassword 申请重置；无论账号是否存在都返回同一响应
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	studentID := strings.TrimSpace(c.PostForm("student_id"))
	captchaInput := c.PostForm("captcha")

	session := sessions.Default(c)
	expectedAnswer, ok := session.Get("reset_captcha_answer").(int)
	if !ok || utils.StringToInt(captchaInput) != expectedAnswer {
		question, answer := h.captchaService.GenerateMathProblem()
		session.Set("reset_captcha_answer", answer)
		session.Save()
		Render(c, http.StatusBadRequest, "auth/forgot_password.html", gin.H{"Error": "验证码错误", "Captcha": question})
		return
	}
	session.Delete("reset_captcha_answer")
	session.Save()

	token, user, err := services.RequestPasswordReset(email, studentID)
	if err == nil && user != nil {
		siteURL := os.Getenv("SITE_URL")
		resetLink := fmt.Sprintf("%s/reset-password?token=%s&email=%s", siteURL, token, email)
		h.mailService.SendPasswordResetEmail(email, resetLink)
		services.RecordActivity(user.ID, services.AuditPasswordReset, "申请重置密码", c.ClientIP())
	}

	// 账号不存在时响应完全一致，防止枚举
	Render(c, http.StatusOK, "auth/forgot_password.html",
		gin.H{"Success": "如果该账号存在，重置链接已发送至邮箱，一小时内有效。"})
}

func (h *AuthHandler) ShowResetPassword(c *gin.Context) {
	Render(c, http.StatusOK, "auth/reset_password.html", gin.H{
		"Token": c.Query("token"),
		"Email": c.Query("email"),
	})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.PostForm("token")
	email := c.PostForm("email")
	newPassword := c.PostForm("password")

	if len(newPassword) < 6 {
		Render(c, http.StatusBadRequest, "auth/reset_password.html",
			gin.H{"Error": "密码至少6位", "Token": token, "Email": email})
		return
	}

	if err := services.ConsumePasswordReset(token, email, newPassword); err != nil {
		Render(c, http.StatusBadRequest, "auth/reset_password.html",
			gin.H{"Error": "重置链接无效或已过期", "Token": token, "Email": email})
		return
	}

	Render(c, http.StatusOK, "auth/login.html", gin.H{"Success": "密码重置成功，请登录"})
}
