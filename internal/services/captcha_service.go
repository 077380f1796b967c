package services

import (
	"fmt"
	"math/rand"
	"time"
)

// CaptchaService 注册/找回密码表单用的算术验证码
type CaptchaService struct {
	rnd *rand.Rand
}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateMathProblem 返回展示串（如 "3 + 5"）和整数答案
// 答案存 session，展示串渲染到表单
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	a := s.rnd.Intn(10)
	b := s.rnd.Intn(10)

	if s.rnd.Intn(2) == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	// 减法保证结果非负
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}
