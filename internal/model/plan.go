package model

// PlanTier 套餐定义，来自配置，不落库
type PlanTier struct {
	Key            string   `json:"-"`
	Price          float64  `json:"price"`
	ImagesPerMonth int      `json:"images_per_month"`
	Features       []string `json:"features"`
	Order          int      `json:"-"`
}
