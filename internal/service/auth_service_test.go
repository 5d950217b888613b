package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/model"
	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/jwt"
	"github.com/qs3c/prodviz_server/internal/repository"
	"github.com/qs3c/prodviz_server/internal/testutil"
)

const testSecret = "test-secret-key-for-testing"

func setupAuthService(t *testing.T) (*AuthService, *repository.SubscriptionRepository, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	userRepo := repository.NewUserRepository(db)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      testSecret,
			ExpireHours: 24,
		},
	}

	service := NewAuthService(userRepo, cfg)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return service, repository.NewSubscriptionRepository(db), cleanup
}

func TestAuthService_Register_Success(t *testing.T) {
	service, subRepo, cleanup := setupAuthService(t)
	defer cleanup()

	req := &dto.RegisterRequest{
		Email:       "NewUser@Example.com",
		Password:    "password123",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		CompanyName: "Engines Ltd",
	}

	resp, err := service.Register(context.Background(), req)
	require.NoError(t, err)
	assert.NotZero(t, resp.UserID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, model.UserStatusActive, resp.Status)

	claims, err := jwt.ParseToken(resp.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)

	// 注册不会自动订阅
	_, err = subRepo.GetByUserID(context.Background(), resp.UserID)
	assert.Error(t, err)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	service, _, cleanup := setupAuthService(t)
	defer cleanup()

	req := &dto.RegisterRequest{Email: "dup@example.com", Password: "password123"}
	_, err := service.Register(context.Background(), req)
	require.NoError(t, err)

	req2 := &dto.RegisterRequest{Email: "DUP@example.com", Password: "password456"}
	_, err = service.Register(context.Background(), req2)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.Equal(t, KindDuplicate, KindOf(err))
}

func TestAuthService_Login(t *testing.T) {
	service, _, cleanup := setupAuthService(t)
	defer cleanup()

	reg, err := service.Register(context.Background(), &dto.RegisterRequest{
		Email:    "login@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		resp, err := service.Login(context.Background(), &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "password123",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, resp.Role)

		claims, err := jwt.ParseToken(resp.AccessToken, testSecret)
		require.NoError(t, err)
		assert.Equal(t, reg.UserID, claims.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := service.Login(context.Background(), &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "wrongpassword",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, KindNotAuthenticated, KindOf(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := service.Login(context.Background(), &dto.LoginRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_RequireAdminActivation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	userRepo := repository.NewUserRepository(db)
	service := NewAuthService(userRepo, &config.Config{
		JWT:  config.JWTConfig{Secret: testSecret, ExpireHours: 24},
		Auth: config.AuthConfig{RequireAdminActivation: true},
	})
	ctx := context.Background()
	creds := &dto.LoginRequest{Email: "pending@example.com", Password: "password123"}

	reg, err := service.Register(ctx, &dto.RegisterRequest{Email: creds.Email, Password: creds.Password})
	require.NoError(t, err)
	assert.Empty(t, reg.AccessToken)
	assert.Equal(t, model.UserStatusPending, reg.Status)
	assert.Contains(t, reg.Message, "administrator")

	// 密码错误时不透露账户状态
	_, err = service.Login(ctx, &dto.LoginRequest{Email: creds.Email, Password: "wrongpassword"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, creds)
	assert.ErrorIs(t, err, ErrAccountPending)
	assert.Equal(t, KindForbidden, KindOf(err))

	require.NoError(t, userRepo.UpdateFields(ctx, reg.UserID, map[string]interface{}{"status": model.UserStatusInactive}))
	_, err = service.Login(ctx, creds)
	assert.ErrorIs(t, err, ErrAccountInactive)

	require.NoError(t, userRepo.UpdateFields(ctx, reg.UserID, map[string]interface{}{"status": model.UserStatusActive}))
	resp, err := service.Login(ctx, creds)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}
