package dto

// AdminUserQuery GET /admin/users 的查询参数
type AdminUserQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=active inactive pending"`
	Role      string `form:"role" binding:"omitempty,oneof=admin user"`
	Search    string `form:"search" binding:"max=100"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PerPage   int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=created_at email first_name last_name company_name"`
	SortOrder int    `form:"sort_order" binding:"omitempty,oneof=-1 1"` // -1 降序
}

// AdminUserItem 管理端看到的用户，附带本周期配额
type AdminUserItem struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	CompanyName       string     `json:"company_name"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	IsActive          bool       `json:"is_active"`
	PendingActivation bool       `json:"pending_activation"`
	CreatedAt         string     `json:"created_at"`
	Quota             *QuotaInfo `json:"quota"`
}

// AdminUserListResponse 分页结果
type AdminUserListResponse struct {
	Users      []AdminUserItem `json:"users"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int64           `json:"total_pages"`
}

// AdminUserDetail 单个用户，额外带累计生成数
type AdminUserDetail struct {
	User       AdminUserItem `json:"user"`
	ImageCount int64         `json:"image_count"`
}

// AdminUpdateUserRequest nil 字段不修改
type AdminUpdateUserRequest struct {
	FirstName         *string `json:"first_name" binding:"omitempty,max=50"`
	LastName          *string `json:"last_name" binding:"omitempty,max=50"`
	CompanyName       *string `json:"company_name" binding:"omitempty,max=100"`
	Role              *string `json:"role"`
	IsActive          *bool   `json:"is_active"`
	PendingActivation *bool   `json:"pending_activation"`
}

// ActivationRequest 启用或停用账户
type ActivationRequest struct {
	Activate bool `json:"activate"`
}

// MessageResponse 只带提示信息的响应
type MessageResponse struct {
	Message string `json:"message"`
}

// AdminStats 管理端总览
type AdminStats struct {
	Users         UserCounts       `json:"users"`
	Subscriptions map[string]int64 `json:"subscriptions"`
	Images        ImageCounts      `json:"images"`
	Registrations Registrations    `json:"registrations"`
	Scenes        []SceneCount     `json:"scenes"`
}

type UserCounts struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Pending int64 `json:"pending"`
}

type ImageCounts struct {
	Total int64 `json:"total"`
}

// Registrations 最近几个自然月的注册数，months 与 counts 一一对应
type Registrations struct {
	Months []string `json:"months"`
	Counts []int64  `json:"counts"`
}

type SceneCount struct {
	Scene string `json:"scene"`
	Count int64  `json:"count"`
}

// AdminSetupRequest 创建首个管理员
type AdminSetupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,max=72"`
	FirstName   string `json:"first_name" binding:"max=50"`
	LastName    string `json:"last_name" binding:"max=50"`
	CompanyName string `json:"company_name" binding:"max=100"`
}

// AdminSetupResponse 创建成功直接返回令牌
type AdminSetupResponse struct {
	UserID      int64  `json:"user_id"`
	AccessToken string `json:"access_token"`
	Message     string `json:"message"`
}
