package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ailumex-academy/config"
)

// ErrLockNotAcquired 锁已被其他实例持有
var ErrLockNotAcquired = errors.New("锁已被占用")

// Client Redis 客户端封装
// 用于资源咨询锁、定时任务选主、事件广播与限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 分布式锁 ──

const lockPrefix = "lock:"

// 仅当值匹配时删除，避免释放他人持有的锁
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 尝试获取单个锁，返回持有令牌
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockNotAcquired
	}
	return token, nil
}

// Unlock 释放锁
func (c *Client) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, c.rdb, []string{lockPrefix + key}, token).Err()
}

// LockAll 按键名排序依次加锁，等待至 ctx 截止；固定加锁顺序保证不会死锁。
// 任一锁获取失败时释放已持有的锁。
func (c *Client) LockAll(ctx context.Context, keys []string, ttl time.Duration) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make(map[string]string, len(sorted))
	release := func() {
		// 使用独立 context，调用方取消后仍能释放
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for k, tok := range held {
			if err := c.Unlock(rctx, k, tok); err != nil {
				c.logger.Warn("释放锁失败", zap.String("key", k), zap.Error(err))
			}
		}
	}

	for _, key := range sorted {
		if _, dup := held[key]; dup {
			continue
		}
		for {
			tok, err := c.TryLock(ctx, key, ttl)
			if err == nil {
				held[key] = tok
				break
			}
			if !errors.Is(err, ErrLockNotAcquired) {
				release()
				return nil, err
			}
			select {
			case <-ctx.Done():
				release()
				return nil, ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}
	}
	return release, nil
}

// ── 事件广播 ──

// Publish 向频道发布消息
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// ── 限流 ──

// CheckRateLimit 固定窗口计数限流，返回本次请求是否放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
