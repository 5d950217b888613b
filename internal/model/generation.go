package model

import (
	"time"
)

// Generation 一次成功的场景生成记录
type Generation struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"` // 生成服务返回的 id
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	ImageID   string    `gorm:"size:64;not null;index" json:"image_id"`
	Scene     string    `gorm:"size:64;not null" json:"scene"`
	Prompt    string    `gorm:"type:text" json:"prompt"`
	ResultURL string    `gorm:"size:500" json:"result_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Generation) TableName() string {
	return "generations"
}

// SceneUsage 按用户、场景累计的生成次数，写入时递增
type SceneUsage struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Scene     string    `gorm:"primaryKey;size:64" json:"scene"`
	Uses      int       `gorm:"not null;default:0" json:"uses"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SceneUsage) TableName() string {
	return "scene_usages"
}
