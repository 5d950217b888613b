package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/api/middleware"
	"github.com/qs3c/prodviz_server/internal/pkg/generator"
	"github.com/qs3c/prodviz_server/internal/pkg/lock"
	"github.com/qs3c/prodviz_server/internal/pkg/logger"
	"github.com/qs3c/prodviz_server/internal/pkg/metrics"
	"github.com/qs3c/prodviz_server/internal/pkg/pubsub"
	"github.com/qs3c/prodviz_server/internal/pkg/response"
	"github.com/qs3c/prodviz_server/internal/pkg/ws"
	"github.com/qs3c/prodviz_server/internal/repository"
	"github.com/qs3c/prodviz_server/internal/service"
	"github.com/qs3c/prodviz_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key"

type testContext struct {
	DB     *gorm.DB
	Locker *lock.LocalLocker
	Hub    *ws.Hub

	Auth         *AuthHandler
	Subscription *SubscriptionHandler
	Generation   *GenerationHandler
	Dashboard    *DashboardHandler
	Account      *AccountHandler
	Admin        *AdminHandler

	admins *service.AdminService
}

func setupHandlers(t *testing.T, lockTimeout time.Duration) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		JWT:    config.JWTConfig{Secret: testJWTSecret, ExpireHours: 24},
		Scenes: config.DefaultScenes(),
	}
	catalog, err := service.NewPlanCatalog(config.SubscriptionConfig{Tiers: config.DefaultTiers()})
	require.NoError(t, err)

	log := logger.Discard()
	hub := ws.NewHub(log)
	locker := lock.NewLocalLocker(lockTimeout)

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	genRepo := repository.NewGenerationRepository(db)

	usage := service.NewUsageService(subRepo, catalog, locker, pubsub.NewLocalPublisher(hub.Dispatch), metrics.New(prometheus.NewRegistry()), log)
	subs := service.NewSubscriptionService(subRepo, userRepo, catalog, usage, log)
	gens := service.NewGenerationService(usage, genRepo, generator.Stub{}, cfg.Scenes, log)
	admins := service.NewAdminService(userRepo, subRepo, genRepo, catalog, usage, subs, cfg, log)

	return &testContext{
		DB:           db,
		Locker:       locker,
		Hub:          hub,
		Auth:         NewAuthHandler(service.NewAuthService(userRepo, cfg)),
		Subscription: NewSubscriptionHandler(subs),
		Generation:   NewGenerationHandler(gens),
		Dashboard:    NewDashboardHandler(service.NewDashboardService(usage, genRepo)),
		Account:      NewAccountHandler(service.NewUserService(userRepo, usage), usage),
		Admin:        NewAdminHandler(admins),
		admins:       admins,
	}
}

// router 注册全部业务路由，userID 为 0 时不注入登录用户
func (tc *testContext) router(userID int64) *gin.Engine {
	r := gin.New()
	if userID != 0 {
		r.Use(mockAuth(userID))
	}
	r.POST("/register", tc.Auth.Register)
	r.POST("/login", tc.Auth.Login)
	r.GET("/subscriptions", tc.Subscription.ListPlans)
	r.GET("/subscription", tc.Subscription.GetSubscription)
	r.POST("/subscribe", tc.Subscription.Subscribe)
	r.GET("/scenes", tc.Generation.Scenes)
	r.POST("/generate", tc.Generation.Generate)
	r.GET("/generations", tc.Generation.List)
	r.GET("/generations/:id", tc.Generation.Get)
	r.DELETE("/generations/:id", tc.Generation.Delete)
	r.GET("/dashboard/stats", tc.Dashboard.Stats)
	r.GET("/quota", tc.Account.Quota)
	r.GET("/user/profile", tc.Account.Profile)
	r.PUT("/user/profile", tc.Account.UpdateProfile)
	r.POST("/admin/setup", tc.Admin.Setup)

	admin := r.Group("/admin", middleware.AdminOnly(tc.admins))
	admin.GET("/users", tc.Admin.ListUsers)
	admin.GET("/users/:id", tc.Admin.GetUser)
	admin.PUT("/users/:id", tc.Admin.UpdateUser)
	admin.PUT("/users/:id/activation", tc.Admin.SetActivation)
	admin.GET("/stats", tc.Admin.Stats)
	return r
}

func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var resp response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}
