package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"FieldForce/config"
	dbotel "FieldForce/pkg/database"
	"FieldForce/pkg/logger"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
	dbErr  error
)

// Init 打开主库连接，按配置挂载只读副本并执行迁移
func Init() error {
	dbOnce.Do(func() {
		cfg := config.Cfg

		var gormDB *gorm.DB
		gormDB, dbErr = Open(cfg)
		if dbErr != nil {
			return
		}

		if cfg.PostgreSQLAutoMigrate {
			if err := Migrate(gormDB); err != nil {
				dbErr = fmt.Errorf("failed to run database migration: %w", err)
				return
			}
		}

		db = gormDB
		logger.Logger.Info("Database initialized successfully",
			zap.String("host", cfg.PostgreSQLHost),
			zap.String("database", cfg.PostgreSQLDatabase),
			zap.Int("replicas", len(cfg.GetReplicaDSNs())),
		)
	})

	return dbErr
}

// Open 构建 *gorm.DB，TranslateError 打开后唯一约束冲突会转成 gorm.ErrDuplicatedKey
func Open(cfg config.Config) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:                                   newLogger(cfg),
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		TranslateError:                           true,
	})
	if err != nil {
		logger.Logger.Error("Failed to open database", zap.String("host", cfg.PostgreSQLHost), zap.Error(err))
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Logger.Error("Failed to get sql.DB from gorm", zap.Error(err))
		return nil, err
	}
	configureConnectionPool(sqlDB, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Logger.Error("Failed to ping database", zap.Error(err))
		return nil, err
	}

	// 历史查询走副本，事务与当日状态通过 dbresolver.Write 固定在主库
	if replicaDSNs := cfg.GetReplicaDSNs(); len(replicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(replicaDSNs))
		for _, dsn := range replicaDSNs {
			replicas = append(replicas, postgres.Open(dsn))
		}

		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxIdleConns(cfg.PostgreSQLMaxIdle).
			SetMaxOpenConns(cfg.PostgreSQLMaxOpen).
			SetConnMaxIdleTime(10 * time.Minute).
			SetConnMaxLifetime(2 * time.Hour)

		if err := gormDB.Use(resolver); err != nil {
			return nil, fmt.Errorf("failed to register read replicas: %w", err)
		}
	}

	if cfg.OTelEnabled {
		if err := dbotel.WithOTELPlugin(gormDB, dbotel.PluginConfig{
			ServiceName: cfg.ServiceName,
			DBName:      cfg.PostgreSQLDatabase,
		}); err != nil {
			return nil, fmt.Errorf("failed to register otel plugin: %w", err)
		}
	}

	return gormDB, nil
}

func DB() *gorm.DB {
	return db
}

// Ping 健康检查使用
func Ping(ctx context.Context) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(ctx context.Context) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- sqlDB.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func configureConnectionPool(sqlDB *sql.DB, cfg config.Config) {
	sqlDB.SetMaxIdleConns(cfg.PostgreSQLMaxIdle)
	sqlDB.SetMaxOpenConns(cfg.PostgreSQLMaxOpen)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)
}

func newLogger(cfg config.Config) gormlogger.Interface {
	var level gormlogger.LogLevel
	switch strings.ToUpper(cfg.LoggerLevel) {
	case "DEBUG":
		level = gormlogger.Info
	case "ERROR":
		level = gormlogger.Error
	default:
		level = gormlogger.Warn
	}

	return gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Named("gorm").Sugar().Infof(format, args...)
}
