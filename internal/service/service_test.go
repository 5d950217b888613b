package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/qs3c/prodviz_server/config"
	"github.com/qs3c/prodviz_server/internal/pkg/lock"
	"github.com/qs3c/prodviz_server/internal/pkg/logger"
	"github.com/qs3c/prodviz_server/internal/pkg/metrics"
	"github.com/qs3c/prodviz_server/internal/pkg/pubsub"
	"github.com/qs3c/prodviz_server/internal/repository"
	"github.com/qs3c/prodviz_server/internal/testutil"
)

// eventRecorder 记录发布的用量事件
type eventRecorder struct {
	mu     sync.Mutex
	events []*pubsub.UsageEvent
}

func (r *eventRecorder) Publish(_ context.Context, e *pubsub.UsageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) last() *pubsub.UsageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type testEnv struct {
	db       *gorm.DB
	catalog  *PlanCatalog
	locker   *lock.LocalLocker
	events   *eventRecorder
	metrics  *metrics.Metrics
	subRepo  *repository.SubscriptionRepository
	userRepo *repository.UserRepository
	genRepo  *repository.GenerationRepository
	usage    *UsageService
	subs     *SubscriptionService
}

func setupServices(t *testing.T, lockTimeout time.Duration) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	catalog, err := NewPlanCatalog(config.SubscriptionConfig{Tiers: config.DefaultTiers()})
	if err != nil {
		t.Fatalf("Failed to build plan catalog: %v", err)
	}

	env := &testEnv{
		db:       db,
		catalog:  catalog,
		locker:   lock.NewLocalLocker(lockTimeout),
		events:   &eventRecorder{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		subRepo:  repository.NewSubscriptionRepository(db),
		userRepo: repository.NewUserRepository(db),
		genRepo:  repository.NewGenerationRepository(db),
	}
	log := logger.Discard()
	env.usage = NewUsageService(env.subRepo, catalog, env.locker, env.events, env.metrics, log)
	env.subs = NewSubscriptionService(env.subRepo, env.userRepo, catalog, env.usage, log)
	return env
}

// freeze 固定服务内的当前时间
func (e *testEnv) freeze(now time.Time) {
	e.usage.now = func() time.Time { return now }
}

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}
