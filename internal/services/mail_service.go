package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
)

// MailService 邮件只做尽力投递，SMTP 未配置时整体禁用
type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Println("MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: StudyShare 学习资源平台 <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		err := smtp.SendMail(addr, auth, s.From, to, msg)
		if err != nil {
			log.Printf("Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("Email sent to %v: %s", to, subject)
		}
	}()
}

func (s *MailService) parseTemplate(templateName string, data interface{}) (string, error) {
	path := filepath.Join("web", "templates", "email", templateName)
	t, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

// SendModerationEmail 审核结果通知邮件
func (s *MailService) SendModerationEmail(email, title string, approved bool, feedback string) {
	body, err := s.parseTemplate("moderation.html", map[string]interface{}{
		"Title":    title,
		"Approved": approved,
		"Feedback": feedback,
	})
	if err != nil {
		log.Printf("Error rendering moderation email: %v", err)
		return
	}
	subject := "您上传的资源《" + title + "》已通过审核"
	if !approved {
		subject = "您上传的资源《" + title + "》未通过审核"
	}
	s.sendAsync([]string{email}, subject, body)
}

// SendPasswordResetEmail 密码重置链接邮件
func (s *MailService) SendPasswordResetEmail(email, resetLink string) {
	body, err := s.parseTemplate("reset.html", map[string]string{
		"ResetLink": resetLink,
	})
	if err != nil {
		log.Printf("Error rendering reset email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "[StudyShare]安全提醒：您正在申请重置密码", body)
}
