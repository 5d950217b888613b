package dto

// GenerateRequest 场景生成请求
type GenerateRequest struct {
	ImageID      string `json:"image_id"`
	Scene        string `json:"scene"`
	CustomPrompt string `json:"custom_prompt"`
}

// GenerateResponse 场景生成结果
type GenerateResponse struct {
	GeneratedID     string `json:"generated_id"`
	Message         string `json:"message"`
	RemainingImages int    `json:"remaining_images"`
}

// ScenesResponse 可用场景模板
type ScenesResponse struct {
	Scenes map[string]string `json:"scenes"`
}

// DashboardStats 控制台统计
type DashboardStats struct {
	ImagesGenerated  int    `json:"images_generated"`
	ImagesPerMonth   int    `json:"images_per_month"`
	RemainingImages  int    `json:"remaining_images"`
	MostUsedScene    string `json:"most_used_scene"`
	TotalGenerations int64  `json:"total_generations"`
}

// GenerationItem 一条生成记录
type GenerationItem struct {
	ID        string `json:"id"`
	ImageID   string `json:"image_id"`
	Scene     string `json:"scene"`
	Prompt    string `json:"prompt"`
	ResultURL string `json:"result_url,omitempty"`
	CreatedAt string `json:"created_at"`
}

// GenerationListResponse 生成历史
type GenerationListResponse struct {
	Generations []GenerationItem `json:"generations"`
}
