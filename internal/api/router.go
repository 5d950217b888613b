package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/api/handler"
	"github.com/qs3c/prodviz_server/internal/api/middleware"
	"github.com/qs3c/prodviz_server/internal/pkg/metrics"
	"github.com/qs3c/prodviz_server/internal/service"
)

type Router struct {
	authHandler         *handler.AuthHandler
	subscriptionHandler *handler.SubscriptionHandler
	generationHandler   *handler.GenerationHandler
	dashboardHandler    *handler.DashboardHandler
	accountHandler      *handler.AccountHandler
	adminHandler        *handler.AdminHandler
	websocketHandler    *handler.WebSocketHandler
	usageService        *service.UsageService
	adminService        *service.AdminService
	metrics             *metrics.Metrics
	log                 logrus.FieldLogger
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	generationHandler *handler.GenerationHandler,
	dashboardHandler *handler.DashboardHandler,
	accountHandler *handler.AccountHandler,
	adminHandler *handler.AdminHandler,
	websocketHandler *handler.WebSocketHandler,
	usageService *service.UsageService,
	adminService *service.AdminService,
	m *metrics.Metrics,
	log logrus.FieldLogger,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		subscriptionHandler: subscriptionHandler,
		generationHandler:   generationHandler,
		dashboardHandler:    dashboardHandler,
		accountHandler:      accountHandler,
		adminHandler:        adminHandler,
		websocketHandler:    websocketHandler,
		usageService:        usageService,
		adminService:        adminService,
		metrics:             m,
		log:                 log,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.log, r.metrics))
	engine.Use(middleware.CORS(r.cfg.CORS))

	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}

	api := engine.Group(r.cfg.Server.BasePath)
	{
		// WebSocket，token 走查询参数
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口
		api.POST("/register", r.authHandler.Register)
		api.POST("/login", r.authHandler.Login)
		api.GET("/subscriptions", r.subscriptionHandler.ListPlans)
		api.POST("/admin/setup", r.adminHandler.Setup)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 订阅
			authenticated.GET("/subscription", r.subscriptionHandler.GetSubscription)
			authenticated.POST("/subscribe", r.subscriptionHandler.Subscribe)

			// 生成
			authenticated.GET("/scenes", r.generationHandler.Scenes)
			authenticated.POST("/generate", middleware.QuotaCheck(r.usageService), r.generationHandler.Generate)
			authenticated.GET("/generations", r.generationHandler.List)
			authenticated.GET("/generations/:id", r.generationHandler.Get)
			authenticated.DELETE("/generations/:id", r.generationHandler.Delete)

			authenticated.GET("/dashboard/stats", r.dashboardHandler.Stats)

			// 账户
			authenticated.GET("/quota", r.accountHandler.Quota)
			authenticated.GET("/user/profile", r.accountHandler.Profile)
			authenticated.PUT("/user/profile", r.accountHandler.UpdateProfile)

			// 管理端
			admin := authenticated.Group("/admin")
			admin.Use(middleware.AdminOnly(r.adminService))
			{
				admin.GET("/users", r.adminHandler.ListUsers)
				admin.GET("/users/:id", r.adminHandler.GetUser)
				admin.PUT("/users/:id", r.adminHandler.UpdateUser)
				admin.PUT("/users/:id/activation", r.adminHandler.SetActivation)
				admin.GET("/stats", r.adminHandler.Stats)
			}
		}
	}

	return engine
}
