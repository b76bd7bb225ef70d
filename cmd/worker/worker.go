package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"FieldForce/config"
	"FieldForce/internal/queue"
	"FieldForce/internal/repository"
	dbotel "FieldForce/pkg/database"
	"FieldForce/pkg/logger"
	"FieldForce/pkg/metrics"
	mqotel "FieldForce/pkg/mq"
	pkgotel "FieldForce/pkg/otel"
	"FieldForce/storage"
	"FieldForce/storage/database"
	"FieldForce/storage/mq"
)

const consumerRestartDelay = 5 * time.Second

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

	meter := otel.Meter(cfg.ServiceName + "-worker")
	if err := dbotel.InitDatabaseMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize database metrics", zap.Error(err))
	}
	if err := mqotel.InitMQMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize mq metrics", zap.Error(err))
	}
	attendanceMetrics, err := metrics.NewAttendanceMetrics(meter)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize attendance metrics", zap.Error(err))
	}

	// worker 不需要 Redis
	if err := storage.Init(storage.Options{MQ: true}); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	auditHandler := queue.NewAuditHandler(repository.NewGormStore(database.DB()), attendanceMetrics)

	logger.Logger.Info("Worker service starting",
		zap.String("service", cfg.ServiceName+"-worker"),
		zap.String("environment", cfg.Environment),
	)

	// channel 被 broker 关闭时稍后重新订阅，连接断开时退出交给进程管理器重启
	for {
		err := queue.StartAuditConsumer(ctx, auditHandler)
		if ctx.Err() != nil {
			break
		}
		if pingErr := mq.Ping(ctx); pingErr != nil {
			logger.Logger.Fatal("RabbitMQ connection lost", zap.NamedError("consume_error", err), zap.Error(pingErr))
		}
		logger.Logger.Error("Audit consumer stopped, restarting", zap.Error(err))

		select {
		case <-ctx.Done():
		case <-time.After(consumerRestartDelay):
		}
		if ctx.Err() != nil {
			break
		}
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
