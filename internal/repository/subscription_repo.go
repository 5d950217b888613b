package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// GetByUserID 不存在时返回 gorm.ErrRecordNotFound
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// SwitchTier 只改套餐，本周期用量和计费日保持不变
func (r *SubscriptionRepository) SwitchTier(ctx context.Context, id int64, tier string, changedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"tier":            tier,
		"tier_changed_at": changedAt,
		"status":          model.SubscriptionStatusActive,
	}).Error
	if err != nil {
		return fmt.Errorf("switch tier: %w", err)
	}
	return nil
}

// ConsumeImage 条件递增，已达到 limit 时不更新并返回 false
func (r *SubscriptionRepository) ConsumeImage(ctx context.Context, userID int64, limit int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ? AND images_generated < ?", userID, limit).
		Update("images_generated", gorm.Expr("images_generated + ?", 1))
	if result.Error != nil {
		return false, fmt.Errorf("consume image: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RefundImage 退还一次用量，不会减到 0 以下。
// 仅当记录仍处于 cycleEnd 结束的那个周期时生效，周期已重置则返回 false。
func (r *SubscriptionRepository) RefundImage(ctx context.Context, userID int64, cycleEnd time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ? AND next_billing_date = ? AND images_generated > 0", userID, cycleEnd).
		Update("images_generated", gorm.Expr("images_generated - ?", 1))
	if result.Error != nil {
		return false, fmt.Errorf("refund image: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ResetCycle 清零用量并写入新的计费时间。
// 仅当记录在 now 仍到期时生效，并发重置只有一个会返回 true。
func (r *SubscriptionRepository) ResetCycle(ctx context.Context, id int64, now, nextBillingDate time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ? AND next_billing_date <= ?", id, now).
		Updates(map[string]interface{}{
			"images_generated":  0,
			"next_billing_date": nextBillingDate,
			"last_reset":        now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("reset cycle: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListDue 到期待重置的订阅，按 id 升序分批
func (r *SubscriptionRepository) ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Where("next_billing_date <= ? AND id > ?", now, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ListByUserIDs 批量读取，未订阅的用户不在结果中
func (r *SubscriptionRepository) ListByUserIDs(ctx context.Context, userIDs []int64) ([]model.Subscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var subs []model.Subscription
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&subs).Error
	return subs, err
}

// CountByTier 各套餐的订阅数
func (r *SubscriptionRepository) CountByTier(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Tier  string
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Select("tier, COUNT(*) AS total").
		Group("tier").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by tier: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Tier] = row.Total
	}
	return out, nil
}
