package storage

import (
	"context"
	"fmt"

	"FieldForce/storage/database"
	"FieldForce/storage/mq"
	"FieldForce/storage/redis"
)

// Options 数据库总是初始化，Redis 与 MQ 按进程需要开启
type Options struct {
	Redis bool
	MQ    bool
}

// Init 按 database -> redis -> mq 的顺序初始化，任一步失败会关闭已经打开的连接
func Init(opts Options) error {
	steps := []struct {
		name    string
		enabled bool
		init    func() error
	}{
		{"database", true, database.Init},
		{"redis", opts.Redis, redis.Init},
		{"mq", opts.MQ, mq.Init},
	}

	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if err := step.init(); err != nil {
			_ = closeAll(context.Background())
			return fmt.Errorf("init %s: %w", step.name, err)
		}
	}
	return nil
}
