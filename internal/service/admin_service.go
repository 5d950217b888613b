package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/model"
	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/jwt"
	"github.com/qs3c/prodviz_server/internal/repository"
)

var (
	ErrAdminRequired    = errors.New("admin privileges required")
	ErrAdminExists      = errors.New("admin users already exist")
	ErrInvalidRole      = errors.New("invalid role value")
	ErrNoFieldsToUpdate = errors.New("no valid fields to update")
	ErrWeakPassword     = errors.New("password must be at least 8 characters and include uppercase, lowercase, and numbers")
)

const (
	defaultPerPage     = 10
	maxPerPage         = 100
	registrationMonths = 6
	topSceneLimit      = 5

	// 首个管理员开通的套餐
	adminTier = "enterprise"
)

// AdminService 管理端的用户管理与全站统计
type AdminService struct {
	userRepo *repository.UserRepository
	subRepo  *repository.SubscriptionRepository
	genRepo  *repository.GenerationRepository
	catalog  *PlanCatalog
	usage    *UsageService
	subs     *SubscriptionService
	cfg      *config.Config
	log      logrus.FieldLogger
}

func NewAdminService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	genRepo *repository.GenerationRepository,
	catalog *PlanCatalog,
	usage *UsageService,
	subs *SubscriptionService,
	cfg *config.Config,
	log logrus.FieldLogger,
) *AdminService {
	return &AdminService{
		userRepo: userRepo,
		subRepo:  subRepo,
		genRepo:  genRepo,
		catalog:  catalog,
		usage:    usage,
		subs:     subs,
		cfg:      cfg,
		log:      log,
	}
}

// RequireAdmin 每次都从库里读角色，降级或停用立即生效
func (s *AdminService) RequireAdmin(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAdminRequired
	}
	if err != nil {
		return err
	}
	if !user.IsAdmin() || !user.IsActive() {
		return ErrAdminRequired
	}
	return nil
}

// ListUsers 分页列出用户，附带各自的本周期配额
func (s *AdminService) ListUsers(ctx context.Context, q *dto.AdminUserQuery) (*dto.AdminUserListResponse, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	users, total, err := s.userRepo.List(ctx, &repository.UserFilter{
		Status: q.Status,
		Role:   q.Role,
		Search: strings.TrimSpace(q.Search),
		SortBy: q.SortBy,
		Desc:   q.SortOrder != 1,
		Offset: (page - 1) * perPage,
		Limit:  perPage,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
	}
	subs, err := s.subRepo.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byUser := make(map[int64]*model.Subscription, len(subs))
	for i := range subs {
		byUser[subs[i].UserID] = &subs[i]
	}

	items := make([]dto.AdminUserItem, 0, len(users))
	for i := range users {
		items = append(items, s.userItem(&users[i], s.usage.QuotaOf(byUser[users[i].ID])))
	}

	return &dto.AdminUserListResponse{
		Users:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + int64(perPage) - 1) / int64(perPage),
	}, nil
}

// GetUser 单个用户及其累计生成数
func (s *AdminService) GetUser(ctx context.Context, id int64) (*dto.AdminUserDetail, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	quota, err := s.usage.Quota(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.genRepo.CountByUser(ctx, id)
	if err != nil {
		return nil, err
	}

	return &dto.AdminUserDetail{
		User:       s.userItem(user, quota),
		ImageCount: count,
	}, nil
}

// UpdateUser 修改资料、角色和账户状态。
// pending_activation 为 true 时优先；只设为 false 时，原本 pending 的账户变为 inactive。
func (s *AdminService) UpdateUser(ctx context.Context, id int64, req *dto.AdminUpdateUserRequest) (*dto.MessageResponse, error) {
	fields := make(map[string]interface{})
	if req.FirstName != nil {
		fields["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		fields["last_name"] = *req.LastName
	}
	if req.CompanyName != nil {
		fields["company_name"] = *req.CompanyName
	}
	if req.Role != nil {
		if *req.Role != model.RoleAdmin && *req.Role != model.RoleUser {
			return nil, ErrInvalidRole
		}
		fields["role"] = *req.Role
	}
	if len(fields) == 0 && req.IsActive == nil && req.PendingActivation == nil {
		return nil, ErrNoFieldsToUpdate
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	status := user.Status
	if req.IsActive != nil {
		status = model.UserStatusInactive
		if *req.IsActive {
			status = model.UserStatusActive
		}
	}
	if req.PendingActivation != nil {
		if *req.PendingActivation {
			status = model.UserStatusPending
		} else if status == model.UserStatusPending {
			status = model.UserStatusInactive
		}
	}
	if status != user.Status {
		fields["status"] = status
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"user_id": id,
			"fields":  fieldNames(fields),
		}).Info("user updated by admin")
	}
	return &dto.MessageResponse{Message: "User updated successfully"}, nil
}

// SetActivation 启用或停用账户，同时清除待激活状态
func (s *AdminService) SetActivation(ctx context.Context, id int64, activate bool) (*dto.MessageResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	status, action := model.UserStatusInactive, "deactivated"
	if activate {
		status, action = model.UserStatusActive, "activated"
	}
	if err := s.userRepo.UpdateFields(ctx, id, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": id,
		"status":  status,
	}).Info("user activation changed")
	return &dto.MessageResponse{Message: fmt.Sprintf("User %s %s successfully", user.Email, action)}, nil
}

// Stats 全站总览：用户数、各套餐订阅数、生成总数、近几个月注册数和最常用场景
func (s *AdminService) Stats(ctx context.Context) (*dto.AdminStats, error) {
	var (
		stats dto.AdminStats
		err   error
	)

	if stats.Users.Total, err = s.userRepo.Count(ctx, "", ""); err != nil {
		return nil, err
	}
	if stats.Users.Active, err = s.userRepo.Count(ctx, model.UserStatusActive, ""); err != nil {
		return nil, err
	}
	if stats.Users.Pending, err = s.userRepo.Count(ctx, model.UserStatusPending, ""); err != nil {
		return nil, err
	}

	byTier, err := s.subRepo.CountByTier(ctx)
	if err != nil {
		return nil, err
	}
	stats.Subscriptions = make(map[string]int64, len(byTier))
	for _, key := range s.catalog.Keys() {
		stats.Subscriptions[key] = byTier[key]
	}

	if stats.Images.Total, err = s.genRepo.TotalUses(ctx); err != nil {
		return nil, err
	}

	now := s.usage.now()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	stats.Registrations.Months = make([]string, 0, registrationMonths)
	stats.Registrations.Counts = make([]int64, 0, registrationMonths)
	for i := registrationMonths - 1; i >= 0; i-- {
		from := thisMonth.AddDate(0, -i, 0)
		count, err := s.userRepo.CountCreatedBetween(ctx, from, from.AddDate(0, 1, 0))
		if err != nil {
			return nil, err
		}
		stats.Registrations.Months = append(stats.Registrations.Months, from.Format("Jan 2006"))
		stats.Registrations.Counts = append(stats.Registrations.Counts, count)
	}

	scenes, err := s.genRepo.TopScenes(ctx, topSceneLimit)
	if err != nil {
		return nil, err
	}
	stats.Scenes = make([]dto.SceneCount, 0, len(scenes))
	for _, sc := range scenes {
		stats.Scenes = append(stats.Scenes, dto.SceneCount{Scene: sc.Scene, Count: sc.Count})
	}

	return &stats, nil
}

// Setup 创建首个管理员并开通 enterprise 套餐，已有管理员时拒绝
func (s *AdminService) Setup(ctx context.Context, req *dto.AdminSetupRequest) (*dto.AdminSetupResponse, error) {
	admins, err := s.userRepo.Count(ctx, "", model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if admins > 0 {
		return nil, ErrAdminExists
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}
	if !strongPassword(req.Password) {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    orDefault(req.FirstName, "Admin"),
		LastName:     orDefault(req.LastName, "User"),
		CompanyName:  orDefault(req.CompanyName, "Admin Company"),
		Role:         model.RoleAdmin,
		Status:       model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	tier := adminTier
	if _, err := s.catalog.Get(tier); err != nil {
		tier = FreeTier
	}
	if _, err := s.subs.Subscribe(ctx, user.ID, tier); err != nil {
		return nil, err
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"tier":    tier,
	}).Info("admin user created")
	return &dto.AdminSetupResponse{
		UserID:      user.ID,
		AccessToken: token,
		Message:     "Admin user created successfully",
	}, nil
}

func (s *AdminService) getUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *AdminService) userItem(user *model.User, quota *dto.QuotaInfo) dto.AdminUserItem {
	return dto.AdminUserItem{
		ID:                user.ID,
		Email:             user.Email,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		CompanyName:       user.CompanyName,
		Role:              user.Role,
		Status:            user.Status,
		IsActive:          user.IsActive(),
		PendingActivation: user.IsPending(),
		CreatedAt:         user.CreatedAt.UTC().Format(time.RFC3339),
		Quota:             quota,
	}
}

// strongPassword 至少 8 位，包含大小写字母和数字
func strongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func fieldNames(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
