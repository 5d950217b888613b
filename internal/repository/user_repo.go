package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateFields 只更新给定列
func (r *UserRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// UserFilter 管理端用户列表的筛选条件，SortBy 须由调用方校验为合法列名
type UserFilter struct {
	Status string
	Role   string
	Search string
	SortBy string
	Desc   bool
	Offset int
	Limit  int
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (r *UserRepository) filtered(ctx context.Context, f *UserFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		q = q.Where(
			"LOWER(email) LIKE ? ESCAPE '!' OR LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!' OR LOWER(company_name) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern, pattern,
		)
	}
	return q
}

// List 按条件分页查询，返回当页记录和总数
func (r *UserRepository) List(ctx context.Context, f *UserFilter) ([]model.User, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}

	var users []model.User
	err := r.filtered(ctx, f).
		Order(sortBy + " " + dir).
		Order("id " + dir).
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&users).Error
	return users, total, err
}

// Count status 或 role 为空时不作为条件
func (r *UserRepository) Count(ctx context.Context, status, role string) (int64, error) {
	var total int64
	err := r.filtered(ctx, &UserFilter{Status: status, Role: role}).Count(&total).Error
	return total, err
}

// CountCreatedBetween 注册时间落在 [from, to) 的用户数
func (r *UserRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&total).Error
	return total, err
}
