package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/api/handler"
	"github.com/qs3c/prodviz_server/internal/model/dto"
	"github.com/qs3c/prodviz_server/internal/pkg/generator"
	"github.com/qs3c/prodviz_server/internal/pkg/lock"
	"github.com/qs3c/prodviz_server/internal/pkg/logger"
	"github.com/qs3c/prodviz_server/internal/pkg/metrics"
	"github.com/qs3c/prodviz_server/internal/pkg/pubsub"
	"github.com/qs3c/prodviz_server/internal/pkg/ws"
	"github.com/qs3c/prodviz_server/internal/repository"
	"github.com/qs3c/prodviz_server/internal/service"
	"github.com/qs3c/prodviz_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		Server: config.ServerConfig{BasePath: "/api", Mode: "test"},
		JWT:    config.JWTConfig{Secret: "router-secret", ExpireHours: 1},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Scenes: config.DefaultScenes(),
	}
	catalog, err := service.NewPlanCatalog(config.SubscriptionConfig{Tiers: config.DefaultTiers()})
	require.NoError(t, err)

	log := logger.Discard()
	m := metrics.New(prometheus.NewRegistry())
	hub := ws.NewHub(log)

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	genRepo := repository.NewGenerationRepository(db)

	usage := service.NewUsageService(subRepo, catalog, lock.NewLocalLocker(lock.DefaultTimeout), pubsub.NewLocalPublisher(hub.Dispatch), m, log)
	subs := service.NewSubscriptionService(subRepo, userRepo, catalog, usage, log)
	gens := service.NewGenerationService(usage, genRepo, generator.Stub{}, cfg.Scenes, log)
	admins := service.NewAdminService(userRepo, subRepo, genRepo, catalog, usage, subs, cfg, log)

	r := NewRouter(
		handler.NewAuthHandler(service.NewAuthService(userRepo, cfg)),
		handler.NewSubscriptionHandler(subs),
		handler.NewGenerationHandler(gens),
		handler.NewDashboardHandler(service.NewDashboardService(usage, genRepo)),
		handler.NewAccountHandler(service.NewUserService(userRepo, usage), usage),
		handler.NewAdminHandler(admins),
		handler.NewWebSocketHandler(hub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, log),
		usage,
		admins,
		m,
		log,
		cfg,
	)
	return r.Setup()
}

func do(t *testing.T, engine http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouter_EntitlementFlow(t *testing.T) {
	engine := setupRouter(t)

	w := do(t, engine, "POST", "/api/register", "", dto.RegisterRequest{Email: "flow@example.com", Password: "password123"})
	require.Equal(t, http.StatusCreated, w.Code)
	var reg dto.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	token := reg.AccessToken

	// 未订阅时生成被预检拦截
	w = do(t, engine, "POST", "/api/generate", token, dto.GenerateRequest{ImageID: "img-1", Scene: "office"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, engine, "POST", "/api/subscribe", token, dto.SubscribeRequest{Tier: "free"})
	require.Equal(t, http.StatusOK, w.Code)

	for i := 0; i < 10; i++ {
		w = do(t, engine, "POST", "/api/generate", token, dto.GenerateRequest{ImageID: "img-1", Scene: "office"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = do(t, engine, "POST", "/api/generate", token, dto.GenerateRequest{ImageID: "img-1", Scene: "office"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"QuotaExceeded"`)

	w = do(t, engine, "GET", "/api/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats dto.DashboardStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "office", stats.MostUsedScene)
	assert.Equal(t, int64(10), stats.TotalGenerations)
	assert.Zero(t, stats.RemainingImages)

	// 删除记录不退还额度
	w = do(t, engine, "GET", "/api/generations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history dto.GenerationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.NotEmpty(t, history.Generations)

	w = do(t, engine, "DELETE", "/api/generations/"+history.Generations[0].ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, engine, "POST", "/api/generate", token, dto.GenerateRequest{ImageID: "img-1", Scene: "office"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_AdminFlow(t *testing.T) {
	engine := setupRouter(t)

	w := do(t, engine, "POST", "/api/register", "", dto.RegisterRequest{Email: "member@example.com", Password: "password123"})
	require.Equal(t, http.StatusCreated, w.Code)
	var member dto.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &member))

	w = do(t, engine, "GET", "/api/admin/stats", member.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, engine, "POST", "/api/admin/setup", "", dto.AdminSetupRequest{Email: "root@example.com", Password: "Sup3rSecret"})
	require.Equal(t, http.StatusCreated, w.Code)
	var setup dto.AdminSetupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &setup))

	w = do(t, engine, "GET", "/api/admin/users?search=member", setup.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.AdminUserListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Users, 1)
	assert.Equal(t, member.UserID, list.Users[0].ID)

	// 停用后不能再登录
	w = do(t, engine, "PUT", fmt.Sprintf("/api/admin/users/%d/activation", member.UserID), setup.AccessToken, dto.ActivationRequest{Activate: false})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, engine, "POST", "/api/login", "", dto.LoginRequest{Email: "member@example.com", Password: "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, engine, "POST", "/api/login", "", dto.LoginRequest{Email: "root@example.com", Password: "Sup3rSecret"})
	require.Equal(t, http.StatusOK, w.Code)
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "admin", login.Role)
}

func TestRouter_PublicAndProtected(t *testing.T) {
	engine := setupRouter(t)

	w := do(t, engine, "GET", "/api/subscriptions", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/api/subscription", "/api/scenes", "/api/quota", "/api/dashboard/stats", "/api/generations", "/api/admin/users", "/api/admin/stats"} {
		w = do(t, engine, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w = do(t, engine, "GET", "/api/subscription", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	engine := setupRouter(t)

	do(t, engine, "GET", "/api/subscriptions", "", nil)

	w := do(t, engine, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "prodviz_http_requests_total"), body)
	assert.Contains(t, body, `path="/api/subscriptions"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	engine := setupRouter(t)

	req := httptest.NewRequest("OPTIONS", "/api/generate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
