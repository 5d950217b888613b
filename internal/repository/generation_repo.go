package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/prodviz_server/internal/model"
)

type GenerationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// Record 写入生成记录并递增场景计数，二者在同一事务内
func (r *GenerationRepository) Record(ctx context.Context, gen *model.Generation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(gen).Error; err != nil {
			return err
		}

		usage := model.SceneUsage{
			UserID:    gen.UserID,
			Scene:     gen.Scene,
			Uses:      1,
			UpdatedAt: time.Now(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "scene"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"uses":       gorm.Expr("uses + ?", 1),
				"updated_at": usage.UpdatedAt,
			}),
		}).Create(&usage).Error
	})
}

// CountByUser 用户累计生成次数
func (r *GenerationRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.SceneUsage{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(uses), 0)").
		Scan(&total).Error
	return total, err
}

// TopScene 使用最多的场景，次数相同按名称排序；没有记录时返回空字符串
func (r *GenerationRepository) TopScene(ctx context.Context, userID int64) (string, int, error) {
	var usage model.SceneUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uses DESC").
		Order("scene ASC").
		First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return usage.Scene, usage.Uses, nil
}

// ListByUser 最近的生成记录
func (r *GenerationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Generation, error) {
	var gens []model.Generation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&gens).Error
	return gens, err
}

// GetByID 只返回属于该用户的记录
func (r *GenerationRepository) GetByID(ctx context.Context, userID int64, id string) (*model.Generation, error) {
	var gen model.Generation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&gen).Error
	if err != nil {
		return nil, err
	}
	return &gen, nil
}

// Delete 删除用户自己的记录并把场景计数减一，记录不存在时返回 false
func (r *GenerationRepository) Delete(ctx context.Context, userID int64, id string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gen model.Generation
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&gen).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Generation{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		if !deleted {
			return nil
		}

		return tx.Model(&model.SceneUsage{}).
			Where("user_id = ? AND scene = ? AND uses > 0", userID, gen.Scene).
			Updates(map[string]interface{}{
				"uses":       gorm.Expr("uses - ?", 1),
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete generation: %w", err)
	}
	return deleted, nil
}

// SceneCount 全站场景使用次数
type SceneCount struct {
	Scene string `json:"scene"`
	Count int64  `gorm:"column:uses" json:"count"`
}

// TotalUses 全站累计生成次数
func (r *GenerationRepository) TotalUses(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.SceneUsage{}).
		Select("COALESCE(SUM(uses), 0)").
		Scan(&total).Error
	return total, err
}

// TopScenes 全站使用最多的场景，直接汇总 scene_usages 计数
func (r *GenerationRepository) TopScenes(ctx context.Context, limit int) ([]SceneCount, error) {
	var out []SceneCount
	err := r.db.WithContext(ctx).Model(&model.SceneUsage{}).
		Select("scene, SUM(uses) AS uses").
		Group("scene").
		Having("SUM(uses) > 0").
		Order("uses DESC").
		Order("scene ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
