package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"FieldForce/config"
	"FieldForce/pkg/errors"
	"FieldForce/pkg/logger"
	"FieldForce/pkg/response"
	"FieldForce/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 限流键前缀
	KeyPrefix string
	// 时间窗口
	Window time.Duration
	// 超限后的封禁时长，0 表示不封禁
	BlockDuration time.Duration
	// 时间窗口内最大请求数
	MaxRequests int
}

// AttendanceRateLimitConfig 打卡写接口的限流配置，按员工计数
func AttendanceRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		KeyPrefix:     redis.Key("rate", "attendance"),
		Window:        time.Duration(config.Cfg.RateLimitWindowSeconds) * time.Second,
		BlockDuration: time.Minute,
		MaxRequests:   config.Cfg.RateLimitMaxRequests,
	}
}

// RateLimiter 基于 zset 的滑动窗口限流器
type RateLimiter struct {
	client goredis.Cmdable
	config RateLimitConfig
	now    func() time.Time
}

func NewRateLimiter(client goredis.Cmdable, cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: cfg,
		now:    time.Now,
	}
}

// identifier 已认证请求按员工限流，否则按 IP
func (rl *RateLimiter) identifier(ctx context.Context, c *app.RequestContext) string {
	if employeeID, ok := GetEmployeeID(ctx, c); ok {
		return "employee:" + strconv.FormatInt(employeeID, 10)
	}
	return "ip:" + c.ClientIP()
}

// Allow 记录本次请求并返回窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, identifier string) (bool, int, error) {
	key := redis.KeyWithPrefix(rl.config.KeyPrefix, identifier)
	now := rl.now()
	windowStart := now.Add(-rl.config.Window)

	pipe := rl.client.TxPipeline()

	// 先移除窗口之外的记录
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))

	// member 带随机后缀，同一纳秒内的并发请求不会互相覆盖
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
	})

	zcardCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window+10*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) blockKey(identifier string) string {
	return redis.KeyWithPrefix(rl.config.KeyPrefix, "block", identifier)
}

func (rl *RateLimiter) Block(ctx context.Context, identifier string) error {
	if rl.config.BlockDuration <= 0 {
		return nil
	}
	return rl.client.Set(ctx, rl.blockKey(identifier), "1", rl.config.BlockDuration).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, identifier string) (bool, error) {
	if rl.config.BlockDuration <= 0 {
		return false, nil
	}
	result, err := rl.client.Exists(ctx, rl.blockKey(identifier)).Result()
	return result > 0, err
}

// RateLimitMiddleware Redis 不可用时放行并记录日志，数据库唯一约束仍然兜底
func RateLimitMiddleware(client goredis.Cmdable, cfg RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(client, cfg)

	return func(ctx context.Context, c *app.RequestContext) {
		identifier := limiter.identifier(ctx, c)

		blocked, err := limiter.IsBlocked(ctx, identifier)
		if err != nil {
			logger.Logger.Warn("Failed to check block status", zap.String("identifier", identifier), zap.Error(err))
			c.Next(ctx)
			return
		}
		if blocked {
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		allowed, count, err := limiter.Allow(ctx, identifier)
		if err != nil {
			logger.Logger.Warn("Failed to check rate limit", zap.String("identifier", identifier), zap.Error(err))
			c.Next(ctx)
			return
		}

		remaining := cfg.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(limiter.now().Add(cfg.Window).Unix(), 10))

		if !allowed {
			if err := limiter.Block(ctx, identifier); err != nil {
				logger.Logger.Warn("Failed to block identifier", zap.String("identifier", identifier), zap.Error(err))
			}

			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
