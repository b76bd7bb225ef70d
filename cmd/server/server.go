package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"FieldForce/config"
	"FieldForce/internal/cache"
	"FieldForce/internal/handler"
	"FieldForce/internal/middleware"
	"FieldForce/internal/queue"
	"FieldForce/internal/repository"
	"FieldForce/internal/router"
	"FieldForce/internal/service"
	dbotel "FieldForce/pkg/database"
	"FieldForce/pkg/logger"
	"FieldForce/pkg/metrics"
	mqotel "FieldForce/pkg/mq"
	pkgotel "FieldForce/pkg/otel"
	redisotel "FieldForce/pkg/redis"
	"FieldForce/pkg/snowflake"
	"FieldForce/pkg/token"
	"FieldForce/storage"
	"FieldForce/storage/database"
	"FieldForce/storage/mq"
	"FieldForce/storage/redis"
)

func main() {
	config.MustLoad()
	cfg := config.Cfg

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// 指标必须在存储层之前初始化，GORM 插件与 Redis hook 在 Init 时挂载
	if cfg.OTelEnabled {
		shutdown, err := pkgotel.InitOpenTelemetry(ctx, pkgotel.FromConfig(cfg))
		if err != nil {
			logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Logger.Warn("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()
	}

	meter := otel.Meter(cfg.ServiceName)
	if err := dbotel.InitDatabaseMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize database metrics", zap.Error(err))
	}
	if err := redisotel.InitRedisMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize redis metrics", zap.Error(err))
	}
	if err := mqotel.InitMQMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize mq metrics", zap.Error(err))
	}
	attendanceMetrics, err := metrics.NewAttendanceMetrics(meter)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize attendance metrics", zap.Error(err))
	}

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(storage.Options{Redis: true, MQ: cfg.AttendanceEventsEnabled}); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// token 在中间件前初始化，middleware 依赖 token
	if err := token.Init(token.Options{
		Secret:     cfg.JWTSecret,
		AccessTTL:  time.Duration(cfg.JWTExpireMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWTRefreshDays) * 24 * time.Hour,
	}); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	}

	if err := middleware.Init(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	// config.Validate 已校验过时区
	defaultLocation, _ := time.LoadLocation(cfg.AttendanceTimezone)

	var publisher service.EventPublisher
	if cfg.AttendanceEventsEnabled {
		publisher = queue.NewPublisher()
	}

	attendance := service.NewAttendanceService(service.AttendanceOptions{
		Store:           repository.NewGormStore(database.DB()),
		Locker:          cache.NewLocker(redis.Client(), cfg.RedisPrefix),
		Cache:           cache.NewTodayCache(redis.Client(), cfg.RedisPrefix),
		Publisher:       publisher,
		Metrics:         attendanceMetrics,
		Logger:          logger.Named("attendance"),
		NextID:          snowflake.NextID,
		DefaultLocation: defaultLocation,
		TxTimeout:       cfg.AttendanceTxTimeout,
		LockTTL:         cfg.AttendanceLockTTL,
		HistoryMaxLimit: cfg.AttendanceHistoryLimit,
	})

	checks := map[string]handler.HealthCheck{
		"postgres": database.Ping,
		"redis": func(ctx context.Context) error {
			return redis.Client().Ping(ctx).Err()
		},
	}
	if cfg.AttendanceEventsEnabled {
		checks["rabbitmq"] = mq.Ping
	}

	deps := router.Dependencies{
		Attendance: handler.NewAttendanceHandler(attendance),
		Auth:       handler.NewAuthHandler(attendance),
		Health:     handler.NewHealthHandler(checks),
	}
	if cfg.RateLimitEnabled {
		deps.RateLimit = middleware.RateLimitMiddleware(redis.Client(), middleware.AttendanceRateLimitConfig())
	}

	addr := net.JoinHostPort(cfg.ServerHost, cfg.ServerPort)
	opts := []hertzconfig.Option{server.WithHostPorts(addr)}
	if cfg.OTelEnabled {
		tracer, tracing := middleware.NewServerTracerConfig()
		opts = append(opts, tracer)
		deps.Tracing = tracing
	}

	logger.Logger.Info("Server starting",
		zap.String("service", cfg.ServiceName),
		zap.String("port", cfg.ServerPort),
		zap.String("environment", cfg.Environment),
		zap.String("default_timezone", cfg.AttendanceTimezone),
	)

	h := server.Default(opts...)
	router.Register(h, deps)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
