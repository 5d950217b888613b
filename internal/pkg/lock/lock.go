// Package lock 提供按用户互斥的锁，进程内或基于 Redis
package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrLockTimeout = errors.New("lock acquire timeout")

// DefaultTimeout 未配置时的等待时长
const DefaultTimeout = 2 * time.Second

// Locker 获取 key 上的互斥锁，超时返回 ErrLockTimeout。
// release 可以重复调用。
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// UserKey 用户维度的锁 key
func UserKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// New 按 driver 创建锁，redis 驱动需要 client
func New(driver string, client *redis.Client, timeout, ttl time.Duration, prefix string) (Locker, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	switch driver {
	case "", "local":
		return NewLocalLocker(timeout), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis lock driver requires redis to be enabled")
		}
		return NewRedisLocker(client, timeout, ttl, prefix), nil
	default:
		return nil, fmt.Errorf("unknown lock driver %q", driver)
	}
}
