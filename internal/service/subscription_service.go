package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/prodviz_server/internal/model"
	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/billingcycle"
	"github.com/qs3c/prodviz_server/internal/pkg/pubsub"
	"github.com/qs3c/prodviz_server/internal/repository"
)

type SubscriptionService struct {
	subRepo  *repository.SubscriptionRepository
	userRepo *repository.UserRepository
	catalog  *PlanCatalog
	usage    *UsageService
	log      logrus.FieldLogger
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	catalog *PlanCatalog,
	usage *UsageService,
	log logrus.FieldLogger,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:  subRepo,
		userRepo: userRepo,
		catalog:  catalog,
		usage:    usage,
		log:      log,
	}
}

// Plans 套餐目录
func (s *SubscriptionService) Plans() map[string]model.PlanTier {
	return s.catalog.List()
}

// Get 当前订阅，未订阅返回 nil, nil
func (s *SubscriptionService) Get(ctx context.Context, userID int64) (*model.Subscription, error) {
	return s.usage.current(ctx, userID)
}

// Subscribe 首次订阅或切换套餐。
// 切换时本周期已用量和计费日都保留，切换套餐不会重新获得整月额度。
func (s *SubscriptionService) Subscribe(ctx context.Context, userID int64, tier string) (*dto.SubscribeResponse, error) {
	if _, err := s.catalog.Get(tier); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotAuthenticated
	}

	var (
		sub     *model.Subscription
		changed bool
	)
	err = s.usage.withUserLock(ctx, userID, func() error {
		current, err := s.usage.load(ctx, userID)
		if err != nil {
			return err
		}

		now := s.usage.now()
		if current == nil {
			sub = &model.Subscription{
				UserID:          userID,
				Tier:            tier,
				StartedAt:       now,
				BillingAnchor:   now,
				NextBillingDate: billingcycle.AddMonths(now, 1),
				LastReset:       now,
				Status:          model.SubscriptionStatusActive,
			}
			if err := s.subRepo.Create(ctx, sub); err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}
			changed = true
			return nil
		}

		current, err = s.usage.resetIfDue(ctx, current, triggerLazy)
		if err != nil {
			return err
		}
		sub = current
		if current.Tier == tier {
			return nil
		}

		if err := s.subRepo.SwitchTier(ctx, current.ID, tier, now); err != nil {
			return err
		}
		sub.Tier = tier
		sub.TierChangedAt = &now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.WithFields(logrus.Fields{
			"user_id":          userID,
			"tier":             tier,
			"images_generated": sub.ImagesGenerated,
		}).Info("subscription changed")
		s.usage.publish(ctx, pubsub.EventSubscriptionChanged, sub)
	}

	info, err := s.info(sub)
	if err != nil {
		return nil, err
	}
	return &dto.SubscribeResponse{
		Message:      fmt.Sprintf("Successfully subscribed to %s tier", tier),
		Subscription: info,
	}, nil
}

// Detail GET /subscription 的返回
func (s *SubscriptionService) Detail(ctx context.Context, userID int64) (*dto.SubscriptionResponse, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &dto.SubscriptionResponse{}, nil
	}

	info, err := s.info(sub)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: info}, nil
}

func (s *SubscriptionService) info(sub *model.Subscription) (*dto.SubscriptionInfo, error) {
	plan, err := s.catalog.Get(sub.Tier)
	if err != nil {
		return nil, err
	}

	return &dto.SubscriptionInfo{
		Tier:            sub.Tier,
		StartedAt:       sub.StartedAt.Format(time.RFC3339),
		NextBillingDate: sub.NextBillingDate.Format(time.RFC3339),
		TierDetails:     plan,
		Usage: dto.UsageInfo{
			ImagesGenerated: sub.ImagesGenerated,
			LastReset:       sub.LastReset.Format(time.RFC3339),
		},
		RemainingImages: RemainingQuota(sub, plan),
	}, nil
}
