package model

import (
	"time"
)

const (
	SubscriptionStatusActive = "active"
)

// Subscription 每个用户至多一条，套餐切换时原地更新
type Subscription struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	UserID          int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	Tier            string     `gorm:"size:32;not null" json:"tier"` // free, starter, business, enterprise
	ImagesGenerated int        `gorm:"not null;default:0" json:"images_generated"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	BillingAnchor   time.Time  `gorm:"not null" json:"billing_anchor"` // day-of-month the cycle renews on
	NextBillingDate time.Time  `gorm:"not null;index" json:"next_billing_date"`
	LastReset       time.Time  `gorm:"not null" json:"last_reset"`
	TierChangedAt   *time.Time `json:"tier_changed_at,omitempty"`
	Status          string     `gorm:"size:20;default:active" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CycleAnchor 计费锚点，旧数据没有锚点时退回到开通时间
func (s *Subscription) CycleAnchor() time.Time {
	if s.BillingAnchor.IsZero() {
		return s.StartedAt
	}
	return s.BillingAnchor
}

func (Subscription) TableName() string {
	return "subscriptions"
}
