package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/database"
	"github.com/qs3c/prodviz_server/internal/model"
	"github.com/qs3c/prodviz_server/internal/pkg/lock"
	"github.com/qs3c/prodviz_server/internal/pkg/logger"
	"github.com/qs3c/prodviz_server/internal/pkg/metrics"
	"github.com/qs3c/prodviz_server/internal/pkg/pubsub"
	"github.com/qs3c/prodviz_server/internal/repository"
	"github.com/qs3c/prodviz_server/internal/service"
)

var (
	dryRun  = flag.Bool("dry-run", true, "Only list subscriptions that are due, don't reset them")
	timeout = flag.Duration("timeout", 10*time.Minute, "Overall timeout")
)

const listBatch = 200

func main() {
	flag.Parse()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.WithField("dry_run", *dryRun).Info("starting billing cycle reset")

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	subRepo := repository.NewSubscriptionRepository(db)

	if *dryRun {
		listDue(ctx, subRepo, log)
		return
	}

	catalog, err := service.NewPlanCatalog(cfg.Subscription)
	if err != nil {
		log.WithError(err).Fatal("invalid plan catalog")
	}

	// 与在线服务共用 Redis 锁时才能保证互斥，本地锁只在本进程内有效
	var (
		locker lock.Locker      = lock.NewLocalLocker(cfg.Lock.Timeout)
		events pubsub.Publisher = pubsub.NewLocalPublisher(nil)
	)
	if cfg.Redis.Enabled {
		rdb, err := database.NewRedis(&cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()

		locker, err = lock.New(cfg.Lock.Driver, rdb, cfg.Lock.Timeout, cfg.Lock.TTL, cfg.Lock.Prefix)
		if err != nil {
			log.WithError(err).Fatal("failed to create locker")
		}
		events = pubsub.NewRedisPublisher(rdb)
	}

	usage := service.NewUsageService(subRepo, catalog, locker, events, metrics.New(prometheus.NewRegistry()), log)
	n, err := usage.ResetDueCycles(ctx)
	if err != nil {
		log.WithError(err).WithField("reset", n).Fatal("billing cycle reset failed")
	}
	log.WithField("reset", n).Info("billing cycle reset completed")
}

// listDue 只输出到期订阅及其重置后的下次计费时间
func listDue(ctx context.Context, subRepo *repository.SubscriptionRepository, log logrus.FieldLogger) {
	now := time.Now().UTC().Truncate(time.Second)
	var afterID int64
	total := 0

	for {
		subs, err := subRepo.ListDue(ctx, now, afterID, listBatch)
		if err != nil {
			log.WithError(err).Fatal("failed to list due subscriptions")
		}
		for i := range subs {
			log.WithFields(dryRunFields(&subs[i], now)).Info("[DRY RUN] would reset")
			afterID = subs[i].ID
		}
		total += len(subs)
		if len(subs) < listBatch {
			break
		}
	}

	log.WithField("due", total).Info("dry run completed, run with -dry-run=false to reset")
}

// dryRunFields 与真实重置使用同一套计费日推算
func dryRunFields(sub *model.Subscription, now time.Time) logrus.Fields {
	next, skipped := service.NextCycle(sub, now)
	return logrus.Fields{
		"user_id":          sub.UserID,
		"tier":             sub.Tier,
		"images_generated": sub.ImagesGenerated,
		"next_billing":     sub.NextBillingDate.Format(time.RFC3339),
		"new_next_billing": next.Format(time.RFC3339),
		"periods":          skipped,
	}
}
