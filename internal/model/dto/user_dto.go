package dto

// UserInfo 用户资料，附带当前配额
type UserInfo struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	CompanyName string     `json:"company_name"`
	Role        string     `json:"role"`
	CreatedAt   string     `json:"created_at"`
	Quota       *QuotaInfo `json:"quota"`
}

// UpdateProfileRequest 更新资料，nil 字段不修改
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name" binding:"omitempty,max=50"`
	LastName    *string `json:"last_name" binding:"omitempty,max=50"`
	CompanyName *string `json:"company_name" binding:"omitempty,max=100"`
}
