package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"FieldForce/config"
	"FieldForce/pkg/logger"
	redisotel "FieldForce/pkg/redis"
)

const defaultPrefix = "ff"

var (
	client  *redis.Client
	once    sync.Once
	initErr error
)

// Init 创建进程级客户端，重复调用返回第一次的结果
func Init() error {
	once.Do(func() {
		cfg := config.Cfg

		c, err := Open(context.Background(), cfg)
		if err != nil {
			initErr = err
			return
		}

		client = c
		logger.Logger.Info("Redis initialized",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB),
			zap.String("prefix", cfg.RedisPrefix),
		)
	})

	return initErr
}

// Open 建立连接并 ping，失败时关闭客户端。锁与今日缓存都要求读写超时远小于事务超时
func Open(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	timeout := cfg.RedisTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	c := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: 5,
		DialTimeout:  2 * timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   2,
	})

	if cfg.OTelEnabled {
		redisotel.InstrumentClient(c, cfg.ServiceName, cfg.RedisDB)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*timeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return c, nil
}

func Client() *redis.Client {
	if client == nil {
		panic("redis client not initialized")
	}
	return client
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// Key 使用配置中的前缀拼接 key
func Key(parts ...string) string {
	return KeyWithPrefix(config.Cfg.RedisPrefix, parts...)
}

// KeyWithPrefix 空片段会被跳过
func KeyWithPrefix(prefix string, parts ...string) string {
	if prefix == "" {
		prefix = defaultPrefix
	}

	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, prefix)
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}
