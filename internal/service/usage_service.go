package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/internal/model"
	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/billingcycle"
	"github.com/qs3c/prodviz_server/internal/pkg/lock"
	"github.com/qs3c/prodviz_server/internal/pkg/metrics"
	"github.com/qs3c/prodviz_server/internal/pkg/pubsub"
	"github.com/qs3c/prodviz_server/internal/repository"
)

const (
	triggerLazy      = "lazy"
	triggerScheduled = "scheduled"

	resetBatchSize = 100
)

// UsageService 本周期用量的扣减、退还和重置。
// 同一用户的写操作都在用户锁内完成，锁之外还有数据库条件更新兜底。
type UsageService struct {
	subRepo *repository.SubscriptionRepository
	catalog *PlanCatalog
	locker  lock.Locker
	events  pubsub.Publisher
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewUsageService(
	subRepo *repository.SubscriptionRepository,
	catalog *PlanCatalog,
	locker lock.Locker,
	events pubsub.Publisher,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *UsageService {
	return &UsageService{
		subRepo: subRepo,
		catalog: catalog,
		locker:  locker,
		events:  events,
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// RemainingQuota 剩余可生成数，最小为 0
func RemainingQuota(sub *model.Subscription, plan model.PlanTier) int {
	if sub == nil {
		return 0
	}
	remaining := plan.ImagesPerMonth - sub.ImagesGenerated
	if remaining < 0 {
		return 0
	}
	return remaining
}

// withUserLock 在用户锁内执行 fn，等待超时返回 ErrRetryable
func (s *UsageService) withUserLock(ctx context.Context, userID int64, fn func() error) error {
	start := time.Now()
	release, err := s.locker.Acquire(ctx, lock.UserKey(userID))
	s.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return ErrRetryable
		}
		return err
	}
	defer release()

	return fn()
}

// load 未订阅时返回 nil, nil
func (s *UsageService) load(ctx context.Context, userID int64) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// current 读取订阅，到期则在锁内完成重置
func (s *UsageService) current(ctx context.Context, userID int64) (*model.Subscription, error) {
	sub, err := s.load(ctx, userID)
	if err != nil || sub == nil {
		return sub, err
	}
	if !billingcycle.IsDue(sub.NextBillingDate, s.now()) {
		return sub, nil
	}

	err = s.withUserLock(ctx, userID, func() error {
		sub, err = s.load(ctx, userID)
		if err != nil || sub == nil {
			return err
		}
		sub, err = s.resetIfDue(ctx, sub, triggerLazy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// resetIfDue 调用方需持有用户锁
func (s *UsageService) resetIfDue(ctx context.Context, sub *model.Subscription, trigger string) (*model.Subscription, error) {
	now := s.now()
	if !billingcycle.IsDue(sub.NextBillingDate, now) {
		return sub, nil
	}
	return s.resetCycle(ctx, sub, now, trigger)
}

// ResetCycle 清零用量，计费日按整月前进到 now 之后。
// 未到期时原样返回，重复调用不会多次前进。
func (s *UsageService) ResetCycle(ctx context.Context, sub *model.Subscription, now time.Time) (*model.Subscription, error) {
	return s.resetCycle(ctx, sub, now, triggerLazy)
}

// NextCycle 到期订阅重置后的下次计费时间和跨过的周期数，未到期时周期数为 0
func NextCycle(sub *model.Subscription, now time.Time) (time.Time, int) {
	return billingcycle.Advance(sub.CycleAnchor(), sub.NextBillingDate, now)
}

func (s *UsageService) resetCycle(ctx context.Context, sub *model.Subscription, now time.Time, trigger string) (*model.Subscription, error) {
	next, skipped := NextCycle(sub, now)
	if skipped == 0 {
		return sub, nil
	}

	ok, err := s.subRepo.ResetCycle(ctx, sub.ID, now, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 已被其他实例重置
		return s.subRepo.GetByUserID(ctx, sub.UserID)
	}

	updated := *sub
	updated.ImagesGenerated = 0
	updated.NextBillingDate = next
	updated.LastReset = now

	s.metrics.ObserveReset(trigger)
	s.log.WithFields(logrus.Fields{
		"user_id":           sub.UserID,
		"tier":              sub.Tier,
		"periods":           skipped,
		"next_billing_date": next.Format(time.RFC3339),
		"trigger":           trigger,
	}).Info("billing cycle reset")
	s.publish(ctx, pubsub.EventCycleReset, &updated)

	return &updated, nil
}

// Reservation 一次已扣减的生成额度，退还时只作用于扣减发生的那个周期
type Reservation struct {
	UserID   int64
	CycleEnd time.Time // 扣减时所在周期的结束时间
	Quota    *dto.QuotaInfo
}

// TryConsume 原子地检查并扣减一次生成额度，返回扣减记录和扣减后的配额
func (s *UsageService) TryConsume(ctx context.Context, userID int64) (*Reservation, error) {
	var res *Reservation

	err := s.withUserLock(ctx, userID, func() error {
		sub, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrSubscriptionNotFound
		}

		sub, err = s.resetIfDue(ctx, sub, triggerLazy)
		if err != nil {
			return err
		}

		plan, err := s.catalog.Get(sub.Tier)
		if err != nil {
			return err
		}

		exceeded := &QuotaExceededError{Tier: sub.Tier, Limit: plan.ImagesPerMonth, Used: sub.ImagesGenerated}
		if sub.ImagesGenerated >= plan.ImagesPerMonth {
			return exceeded
		}

		ok, err := s.subRepo.ConsumeImage(ctx, userID, plan.ImagesPerMonth)
		if err != nil {
			return err
		}
		if !ok {
			return exceeded
		}

		sub.ImagesGenerated++
		res = &Reservation{
			UserID:   userID,
			CycleEnd: sub.NextBillingDate,
			Quota:    quotaInfo(sub, plan),
		}
		s.publish(ctx, pubsub.EventUsageChanged, sub)
		return nil
	})

	s.metrics.ObserveConsume(consumeResult(err))
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"tier":      res.Quota.Tier,
		"remaining": res.Quota.RemainingImages,
	}).Debug("image quota consumed")
	return res, nil
}

func consumeResult(err error) string {
	switch {
	case err == nil:
		return metrics.ConsumeOK
	case errors.Is(err, ErrQuotaExceeded):
		return metrics.ConsumeExceeded
	case errors.Is(err, ErrSubscriptionNotFound):
		return metrics.ConsumeNoSub
	case errors.Is(err, ErrRetryable):
		return metrics.ConsumeContended
	default:
		return metrics.ConsumeError
	}
}

// Refund 生成失败时退还额度。扣减所在周期已经重置时不再退还，
// 新周期的用量从 0 开始，失败的那次不计入。
func (s *UsageService) Refund(ctx context.Context, res *Reservation) error {
	if res == nil {
		return nil
	}
	userID := res.UserID

	return s.withUserLock(ctx, userID, func() error {
		ok, err := s.subRepo.RefundImage(ctx, userID, res.CycleEnd)
		if err != nil {
			return err
		}
		if !ok {
			s.log.WithFields(logrus.Fields{
				"user_id":   userID,
				"cycle_end": res.CycleEnd.Format(time.RFC3339),
			}).Info("refund skipped, cycle already rolled over")
			return nil
		}

		sub, err := s.load(ctx, userID)
		if err != nil || sub == nil {
			return err
		}
		s.publish(ctx, pubsub.EventUsageChanged, sub)
		return nil
	})
}

// Quota 当前配额，未订阅时 remaining 为 0 且不报错
func (s *UsageService) Quota(ctx context.Context, userID int64) (*dto.QuotaInfo, error) {
	sub, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &dto.QuotaInfo{}, nil
	}

	plan, err := s.catalog.Get(sub.Tier)
	if err != nil {
		return nil, err
	}
	return quotaInfo(sub, plan), nil
}

// QuotaOf 只读地计算订阅当前的配额，到期未重置的按新周期展示
func (s *UsageService) QuotaOf(sub *model.Subscription) *dto.QuotaInfo {
	if sub == nil {
		return &dto.QuotaInfo{}
	}

	view := *sub
	if next, skipped := NextCycle(sub, s.now()); skipped > 0 {
		view.ImagesGenerated = 0
		view.NextBillingDate = next
	}

	plan, err := s.catalog.Get(view.Tier)
	if err != nil {
		// 套餐已从目录下线
		return &dto.QuotaInfo{
			HasSubscription: true,
			Tier:            view.Tier,
			ImagesGenerated: view.ImagesGenerated,
			NextBillingDate: view.NextBillingDate.Format(time.RFC3339),
		}
	}
	return quotaInfo(&view, plan)
}

// ResetDueCycles 批量重置所有到期订阅，供定时任务使用。
// 单个用户锁竞争时跳过，下次运行或该用户下次访问时会补上。
func (s *UsageService) ResetDueCycles(ctx context.Context) (int, error) {
	now := s.now()
	var afterID int64
	reset := 0

	for {
		subs, err := s.subRepo.ListDue(ctx, now, afterID, resetBatchSize)
		if err != nil {
			return reset, err
		}
		if len(subs) == 0 {
			return reset, nil
		}

		for i := range subs {
			sub := subs[i]
			afterID = sub.ID

			err := s.withUserLock(ctx, sub.UserID, func() error {
				fresh, err := s.load(ctx, sub.UserID)
				if err != nil || fresh == nil {
					return err
				}
				before := fresh.NextBillingDate
				updated, err := s.resetIfDue(ctx, fresh, triggerScheduled)
				if err != nil {
					return err
				}
				if !updated.NextBillingDate.Equal(before) {
					reset++
				}
				return nil
			})
			if err != nil {
				if ctx.Err() != nil {
					return reset, ctx.Err()
				}
				s.log.WithError(err).WithField("user_id", sub.UserID).Warn("scheduled cycle reset skipped")
			}
		}
	}
}

func (s *UsageService) publish(ctx context.Context, eventType string, sub *model.Subscription) {
	if s.events == nil {
		return
	}

	event := &pubsub.UsageEvent{
		Type:            eventType,
		UserID:          sub.UserID,
		Tier:            sub.Tier,
		ImagesGenerated: sub.ImagesGenerated,
		NextBillingDate: sub.NextBillingDate.Format(time.RFC3339),
	}
	if plan, err := s.catalog.Get(sub.Tier); err == nil {
		event.ImagesPerMonth = plan.ImagesPerMonth
		event.RemainingImages = RemainingQuota(sub, plan)
	}

	if err := s.events.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("user_id", sub.UserID).Warn("publish usage event")
	}
}

func quotaInfo(sub *model.Subscription, plan model.PlanTier) *dto.QuotaInfo {
	return &dto.QuotaInfo{
		HasSubscription: true,
		Tier:            sub.Tier,
		ImagesPerMonth:  plan.ImagesPerMonth,
		ImagesGenerated: sub.ImagesGenerated,
		RemainingImages: RemainingQuota(sub, plan),
		NextBillingDate: sub.NextBillingDate.Format(time.RFC3339),
	}
}
