package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/api"
	"github.com/qs3c/prodviz_server/internal/api/handler"
	"github.com/qs3c/prodviz_server/internal/database"
	"github.com/qs3c/prodviz_server/internal/pkg/cron"
	"github.com/qs3c/prodviz_server/internal/pkg/generator"
	"github.com/qs3c/prodviz_server/internal/pkg/lock"
	"github.com/qs3c/prodviz_server/internal/pkg/logger"
	"github.com/qs3c/prodviz_server/internal/pkg/metrics"
	"github.com/qs3c/prodviz_server/internal/pkg/pubsub"
	"github.com/qs3c/prodviz_server/internal/pkg/ws"
	"github.com/qs3c/prodviz_server/internal/repository"
	"github.com/qs3c/prodviz_server/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	log.WithField("driver", cfg.Database.Driver).Info("database connected")

	// 初始化 Redis，未启用时锁和事件都走进程内实现
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.NewRedis(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		log.Info("redis connected")
	}

	locker, err := lock.New(cfg.Lock.Driver, rdb, cfg.Lock.Timeout, cfg.Lock.TTL, cfg.Lock.Prefix)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub(log)

	var events pubsub.Publisher
	if rdb != nil {
		events = pubsub.NewRedisPublisher(rdb)
	} else {
		events = pubsub.NewLocalPublisher(wsHub.Dispatch)
	}

	catalog, err := service.NewPlanCatalog(cfg.Subscription)
	if err != nil {
		return err
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	genRepo := repository.NewGenerationRepository(db)

	// 初始化 Service
	usageService := service.NewUsageService(subRepo, catalog, locker, events, m, log)
	subscriptionService := service.NewSubscriptionService(subRepo, userRepo, catalog, usageService, log)
	generationService := service.NewGenerationService(
		usageService,
		genRepo,
		generator.New(cfg.Generator.BaseURL, cfg.Generator.APIKey, cfg.Generator.Timeout),
		cfg.Scenes,
		log,
	)
	authService := service.NewAuthService(userRepo, cfg)
	userService := service.NewUserService(userRepo, usageService)
	dashboardService := service.NewDashboardService(usageService, genRepo)
	adminService := service.NewAdminService(userRepo, subRepo, genRepo, catalog, usageService, subscriptionService, cfg, log)

	// 初始化 Router
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewSubscriptionHandler(subscriptionService),
		handler.NewGenerationHandler(generationService),
		handler.NewDashboardHandler(dashboardService),
		handler.NewAccountHandler(userService, usageService),
		handler.NewAdminHandler(adminService),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, log),
		usageService,
		adminService,
		m,
		log,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 多实例部署时每个实例都订阅，事件推送到本实例持有的连接
	if rdb != nil {
		subscriber := pubsub.NewSubscriber(rdb)
		g.Go(func() error {
			err := subscriber.Subscribe(gctx, nil, wsHub.Dispatch)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if cfg.Cron.Enabled {
		cronService, err := cron.NewService(usageService, cfg.Cron.CycleResetSchedule, log)
		if err != nil {
			return err
		}
		cronService.Start()
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			cronService.Stop(stopCtx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
