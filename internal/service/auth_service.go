package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/model"
	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/jwt"
	"github.com/qs3c/prodviz_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountPending     = errors.New("your account is pending activation by an administrator")
	ErrAccountInactive    = errors.New("your account has been deactivated")
)

type AuthService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Register 用户注册，不会自动创建订阅。
// 开启管理员激活时账户处于 pending，不签发令牌。
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CompanyName:  req.CompanyName,
		Role:         model.RoleUser,
		Status:       model.UserStatusActive,
	}
	if s.cfg.Auth.RequireAdminActivation {
		user.Status = model.UserStatusPending
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if user.IsPending() {
		return &dto.RegisterResponse{
			UserID:  user.ID,
			Message: "Account created. An administrator will review and activate your account.",
			Status:  user.Status,
		}, nil
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.RegisterResponse{
		UserID:      user.ID,
		AccessToken: token,
		Message:     "Account created, choose a plan to start generating",
		Status:      user.Status,
	}, nil
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 密码正确后才透露账户状态
	switch {
	case user.IsPending():
		return nil, ErrAccountPending
	case !user.IsActive():
		return nil, ErrAccountInactive
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{AccessToken: token, Role: user.Role}, nil
}
