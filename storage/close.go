package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"FieldForce/pkg/logger"
	"FieldForce/storage/database"
	"FieldForce/storage/mq"
	"FieldForce/storage/redis"
)

const closeTimeout = 15 * time.Second

// Close 进程退出时调用，错误只记录日志
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := closeAll(ctx); err != nil {
		logger.Logger.Error("Storage closed with errors", zap.Error(err))
		return
	}
	logger.Logger.Info("Storage connections closed")
}

// closeAll 与初始化顺序相反: 先停消息再断缓存，最后关数据库。未初始化的组件各自返回 nil
func closeAll(ctx context.Context) error {
	closers := []struct {
		name  string
		close func(context.Context) error
	}{
		{"mq", mq.Close},
		{"redis", redis.Close},
		{"database", database.Close},
	}

	var errs []error
	for _, c := range closers {
		if err := c.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}
