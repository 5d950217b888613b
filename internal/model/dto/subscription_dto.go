package dto

import (
	"github.com/qs3c/prodviz_server/internal/model"
)

// SubscribeRequest 订阅或切换套餐
type SubscribeRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// SubscribeResponse 订阅结果
type SubscribeResponse struct {
	Message      string            `json:"message"`
	Subscription *SubscriptionInfo `json:"subscription"`
}

// SubscriptionResponse GET /subscription，未订阅时 subscription 为 null
type SubscriptionResponse struct {
	Subscription *SubscriptionInfo `json:"subscription"`
}

// SubscriptionInfo 当前订阅
type SubscriptionInfo struct {
	Tier            string         `json:"tier"`
	StartedAt       string         `json:"started_at"`
	NextBillingDate string         `json:"next_billing_date"`
	TierDetails     model.PlanTier `json:"tier_details"`
	Usage           UsageInfo      `json:"usage"`
	RemainingImages int            `json:"remaining_images"`
}

// UsageInfo 本周期用量
type UsageInfo struct {
	ImagesGenerated int    `json:"images_generated"`
	LastReset       string `json:"last_reset"`
}

// QuotaInfo 配额信息
type QuotaInfo struct {
	HasSubscription bool   `json:"has_subscription"`
	Tier            string `json:"tier"`
	ImagesPerMonth  int    `json:"images_per_month"`
	ImagesGenerated int    `json:"images_generated"`
	RemainingImages int    `json:"remaining_images"`
	NextBillingDate string `json:"next_billing_date,omitempty"`
}
