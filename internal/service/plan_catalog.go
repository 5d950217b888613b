package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/model"
)

const FreeTier = "free"

// PlanCatalog 只读的套餐目录，启动后不再变化
type PlanCatalog struct {
	tiers map[string]model.PlanTier
	keys  []string
}

// NewPlanCatalog 校验配置中的套餐，必须包含 free
func NewPlanCatalog(cfg config.SubscriptionConfig) (*PlanCatalog, error) {
	if len(cfg.Tiers) == 0 {
		return nil, errors.New("plan catalog: no tiers configured")
	}
	if _, ok := cfg.Tiers[FreeTier]; !ok {
		return nil, errors.New("plan catalog: free tier is required")
	}

	c := &PlanCatalog{tiers: make(map[string]model.PlanTier, len(cfg.Tiers))}
	for key, t := range cfg.Tiers {
		if key == "" {
			return nil, errors.New("plan catalog: empty tier key")
		}
		if t.ImagesPerMonth <= 0 {
			return nil, fmt.Errorf("plan catalog: tier %s: images_per_month must be positive", key)
		}
		if t.Price < 0 {
			return nil, fmt.Errorf("plan catalog: tier %s: price must not be negative", key)
		}
		c.tiers[key] = model.PlanTier{
			Key:            key,
			Price:          t.Price,
			ImagesPerMonth: t.ImagesPerMonth,
			Features:       append([]string(nil), t.Features...),
			Order:          t.Order,
		}
		c.keys = append(c.keys, key)
	}

	sort.Slice(c.keys, func(i, j int) bool {
		a, b := c.tiers[c.keys[i]], c.tiers[c.keys[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.Key < b.Key
	})
	return c, nil
}

// List 返回副本，调用方修改不影响目录
func (c *PlanCatalog) List() map[string]model.PlanTier {
	out := make(map[string]model.PlanTier, len(c.tiers))
	for k, t := range c.tiers {
		t.Features = append([]string(nil), t.Features...)
		out[k] = t
	}
	return out
}

func (c *PlanCatalog) Get(key string) (model.PlanTier, error) {
	t, ok := c.tiers[key]
	if !ok {
		return model.PlanTier{}, fmt.Errorf("%w: %q", ErrUnknownTier, key)
	}
	t.Features = append([]string(nil), t.Features...)
	return t, nil
}

// Keys 按展示顺序
func (c *PlanCatalog) Keys() []string {
	return append([]string(nil), c.keys...)
}
