package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/internal/model"
)

var seq int64

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := atomic.AddInt64(&seq, 1)
	user := &model.User{
		Email:        fmt.Sprintf("test_%d@example.com", n),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		CompanyName:  "Acme",
		Role:         model.RoleUser,
		Status:       model.UserStatusActive,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithStatus 设置账户状态
func WithStatus(status string) func(*model.User) {
	return func(u *model.User) {
		u.Status = status
	}
}

// WithCreatedAt 设置注册时间
func WithCreatedAt(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.CreatedAt = at
	}
}

// TestSubscription 创建测试订阅，默认 free 套餐、本周期刚开始
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	sub := &model.Subscription{
		UserID:          userID,
		Tier:            "free",
		StartedAt:       now,
		BillingAnchor:   now,
		NextBillingDate: now.AddDate(0, 1, 0),
		LastReset:       now,
		Status:          model.SubscriptionStatusActive,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithTier 设置套餐
func WithTier(tier string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Tier = tier
	}
}

// WithImagesGenerated 设置本周期已生成数
func WithImagesGenerated(n int) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.ImagesGenerated = n
	}
}

// WithBillingCycle 设置周期起点和下次计费时间
func WithBillingCycle(anchor, next time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.StartedAt = anchor
		s.BillingAnchor = anchor
		s.LastReset = anchor
		s.NextBillingDate = next
	}
}

// TestSceneUsage 写入场景计数
func TestSceneUsage(t *testing.T, db *gorm.DB, userID int64, scene string, uses int) *model.SceneUsage {
	t.Helper()

	usage := &model.SceneUsage{UserID: userID, Scene: scene, Uses: uses}
	if err := db.Create(usage).Error; err != nil {
		t.Fatalf("Failed to create test scene usage: %v", err)
	}
	return usage
}
