package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	FirstName   string `json:"first_name" binding:"max=50"`
	LastName    string `json:"last_name" binding:"max=50"`
	CompanyName string `json:"company_name" binding:"max=100"`
}

// RegisterResponse 注册响应，需管理员激活时不返回令牌，status 为 pending
type RegisterResponse struct {
	UserID      int64  `json:"user_id"`
	AccessToken string `json:"access_token,omitempty"`
	Message     string `json:"message"`
	Status      string `json:"status"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
}
