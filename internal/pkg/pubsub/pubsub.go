package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelUsage = "entitlement_usage"
)

// 事件类型
const (
	EventUsageChanged        = "usage_changed"
	EventSubscriptionChanged = "subscription_changed"
	EventCycleReset          = "cycle_reset"
)

// UsageEvent 用量变化通知，推送给该用户所有在线连接
type UsageEvent struct {
	Type            string `json:"type"`
	UserID          int64  `json:"user_id"`
	Tier            string `json:"tier"`
	ImagesGenerated int    `json:"images_generated"`
	ImagesPerMonth  int    `json:"images_per_month"`
	RemainingImages int    `json:"remaining_images"`
	NextBillingDate string `json:"next_billing_date,omitempty"`
	At              string `json:"at"`
}

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, event *UsageEvent) error
}

func stamp(event *UsageEvent) {
	if event.At == "" {
		event.At = time.Now().UTC().Format(time.RFC3339)
	}
}

// RedisPublisher 多实例部署时通过 Redis 广播
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *UsageEvent) error {
	stamp(event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal usage event: %w", err)
	}

	return p.client.Publish(ctx, ChannelUsage, data).Err()
}

// LocalPublisher 未启用 Redis 时直接投递到本进程
type LocalPublisher struct {
	handler func(*UsageEvent)
}

func NewLocalPublisher(handler func(*UsageEvent)) *LocalPublisher {
	return &LocalPublisher{handler: handler}
}

func (p *LocalPublisher) Publish(_ context.Context, event *UsageEvent) error {
	stamp(event)
	if p.handler != nil {
		p.handler(event)
	}
	return nil
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 阻塞直到 ctx 结束，ready 在订阅建立后关闭（可为 nil）
func (s *Subscriber) Subscribe(ctx context.Context, ready chan<- struct{}, handler func(*UsageEvent)) error {
	sub := s.client.Subscribe(ctx, ChannelUsage)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelUsage, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event UsageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
