package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserStatusActive   = "active"
	UserStatusPending  = "pending"  // 等待管理员激活
	UserStatusInactive = "inactive" // 被管理员停用
)

type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FirstName    string    `gorm:"size:50" json:"first_name"`
	LastName     string    `gorm:"size:50" json:"last_name"`
	CompanyName  string    `gorm:"size:100" json:"company_name"`
	Role         string    `gorm:"size:16;not null;default:user;index" json:"role"`
	Status       string    `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

func (u *User) IsPending() bool {
	return u.Status == UserStatusPending
}
