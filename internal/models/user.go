package models

import (
	"time"
)

// 用户角色
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"size:50;not null" json:"first_name"`
	LastName    string     `gorm:"size:50;not null" json:"last_name"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"` // bcrypt hash
	Role        string     `gorm:"size:20;default:'student';not null;index" json:"role"`
	Status      string     `gorm:"size:20;default:'active';not null" json:"status"`
	Department  string     `gorm:"size:100" json:"department"`
	StudentID   *string    `gorm:"size:20;uniqueIndex" json:"student_id"` // 学生学号，管理员为空
	YearOfStudy int        `gorm:"default:0" json:"year_of_study"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	// 不做物理删除，封禁走 Status
}

// FullName 拼接显示名
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
