package service

import (
	"context"

	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/repository"
)

const noSceneYet = "None"

// DashboardService 控制台统计，只读预先累计的计数，不扫描生成历史
type DashboardService struct {
	usage   *UsageService
	genRepo *repository.GenerationRepository
}

func NewDashboardService(usage *UsageService, genRepo *repository.GenerationRepository) *DashboardService {
	return &DashboardService{usage: usage, genRepo: genRepo}
}

func (s *DashboardService) Stats(ctx context.Context, userID int64) (*dto.DashboardStats, error) {
	quota, err := s.usage.Quota(ctx, userID)
	if err != nil {
		return nil, err
	}

	scene, _, err := s.genRepo.TopScene(ctx, userID)
	if err != nil {
		return nil, err
	}
	if scene == "" {
		scene = noSceneYet
	}

	total, err := s.genRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardStats{
		ImagesGenerated:  quota.ImagesGenerated,
		ImagesPerMonth:   quota.ImagesPerMonth,
		RemainingImages:  quota.RemainingImages,
		MostUsedScene:    scene,
		TotalGenerations: total,
	}, nil
}
