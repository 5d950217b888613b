package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleResetter 批量重置到期的计费周期
type CycleResetter interface {
	ResetDueCycles(ctx context.Context) (int, error)
}

type Service struct {
	resetter CycleResetter
	schedule string
	cron     *cron.Cron
	log      logrus.FieldLogger
	timeout  time.Duration
}

// NewService schedule 使用标准 cron 表达式或 @hourly 之类的描述符，按 UTC 计算
func NewService(resetter CycleResetter, schedule string, log logrus.FieldLogger) (*Service, error) {
	s := &Service{
		resetter: resetter,
		schedule: schedule,
		log:      log,
		timeout:  10 * time.Minute,
	}

	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
	)
	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		return nil, fmt.Errorf("invalid cycle reset schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start 启动定时任务
func (s *Service) Start() {
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("cron service started (billing cycle reset)")
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Service) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.log.Info("cron service stopped")
}

// RunNow 立即执行一次周期重置
func (s *Service) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.resetter.ResetDueCycles(ctx)
	if err != nil {
		s.log.WithError(err).WithField("reset", n).Error("billing cycle reset failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"reset":   n,
		"elapsed": time.Since(start).String(),
	}).Info("billing cycle reset completed")
}

// cronLogger 把 cron 内部日志转到 logrus
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
