package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/internal/model"
	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/generator"
	"github.com/qs3c/prodviz_server/internal/repository"
)

var (
	ErrMissingGenerateInput = errors.New("image ID and scene are required")
	ErrInvalidScene         = errors.New("invalid scene selected")
	ErrInvalidImageID       = errors.New("image ID is too long")
)

// 与 generations 表的列宽一致，超长的输入在扣额度之前拒绝
const (
	maxImageIDLen = 64
	maxSceneLen   = 64
)

type GenerationService struct {
	usage   *UsageService
	genRepo *repository.GenerationRepository
	gen     generator.Generator
	scenes  map[string]string
	log     logrus.FieldLogger
}

func NewGenerationService(
	usage *UsageService,
	genRepo *repository.GenerationRepository,
	gen generator.Generator,
	scenes map[string]string,
	log logrus.FieldLogger,
) *GenerationService {
	return &GenerationService{
		usage:   usage,
		genRepo: genRepo,
		gen:     gen,
		scenes:  scenes,
		log:     log,
	}
}

// Scenes 场景模板
func (s *GenerationService) Scenes() map[string]string {
	out := make(map[string]string, len(s.scenes))
	for k, v := range s.scenes {
		out[k] = v
	}
	return out
}

// prompt 已知场景使用模板，否则使用自定义提示词
func (s *GenerationService) prompt(req *dto.GenerateRequest) (string, error) {
	if req.ImageID == "" || req.Scene == "" {
		return "", ErrMissingGenerateInput
	}
	if utf8.RuneCountInString(req.ImageID) > maxImageIDLen {
		return "", ErrInvalidImageID
	}
	if utf8.RuneCountInString(req.Scene) > maxSceneLen {
		return "", ErrInvalidScene
	}
	if tpl, ok := s.scenes[req.Scene]; ok {
		return tpl, nil
	}
	if req.CustomPrompt == "" {
		return "", ErrInvalidScene
	}
	return req.CustomPrompt, nil
}

// Generate 先扣额度再调用生成服务，生成失败退还额度
func (s *GenerationService) Generate(ctx context.Context, userID int64, req *dto.GenerateRequest) (*dto.GenerateResponse, error) {
	prompt, err := s.prompt(req)
	if err != nil {
		return nil, err
	}

	res, err := s.usage.TryConsume(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.gen.Generate(ctx, &generator.Request{
		UserID:  userID,
		ImageID: req.ImageID,
		Scene:   req.Scene,
		Prompt:  prompt,
	})
	if err != nil {
		// 请求取消后仍需退还
		if refundErr := s.usage.Refund(context.WithoutCancel(ctx), res); refundErr != nil {
			s.log.WithError(refundErr).WithField("user_id", userID).Error("refund image quota")
		}
		return nil, err
	}

	// 记录与返回给客户端的是同一个 id，之后可按它查询
	id := result.GeneratedID
	if id == "" {
		id = uuid.NewString()
	}
	gen := &model.Generation{
		ID:        id,
		UserID:    userID,
		ImageID:   req.ImageID,
		Scene:     req.Scene,
		Prompt:    prompt,
		ResultURL: result.URL,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.genRepo.Record(ctx, gen); err != nil {
		// 图片已生成、额度已扣，记录失败只影响统计
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":      userID,
			"generated_id": id,
		}).Error("record generation")
	}

	return &dto.GenerateResponse{
		GeneratedID:     id,
		Message:         "Image generated successfully",
		RemainingImages: res.Quota.RemainingImages,
	}, nil
}

const historyLimit = 50

// History 最近的生成记录
func (s *GenerationService) History(ctx context.Context, userID int64) (*dto.GenerationListResponse, error) {
	gens, err := s.genRepo.ListByUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.GenerationItem, 0, len(gens))
	for i := range gens {
		items = append(items, generationItem(&gens[i]))
	}
	return &dto.GenerationListResponse{Generations: items}, nil
}

// Get 单条生成记录，不属于该用户时同样返回 ErrGenerationNotFound
func (s *GenerationService) Get(ctx context.Context, userID int64, id string) (*dto.GenerationItem, error) {
	gen, err := s.genRepo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, err
	}
	item := generationItem(gen)
	return &item, nil
}

// Delete 删除一条生成记录，场景计数同步减一，已用额度不退还
func (s *GenerationService) Delete(ctx context.Context, userID int64, id string) error {
	ok, err := s.genRepo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrGenerationNotFound
	}
	return nil
}

func generationItem(gen *model.Generation) dto.GenerationItem {
	return dto.GenerationItem{
		ID:        gen.ID,
		ImageID:   gen.ImageID,
		Scene:     gen.Scene,
		Prompt:    gen.Prompt,
		ResultURL: gen.ResultURL,
		CreatedAt: gen.CreatedAt.Format(time.RFC3339),
	}
}
