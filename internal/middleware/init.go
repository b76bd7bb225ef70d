package middleware

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"FieldForce/pkg/logger"
)

// Init 必须在 token.Init 之后调用。meter 为空时跳过 HTTP 指标，中间件对未初始化的指标做了空值保护
func Init(meter metric.Meter) error {
	if meter != nil {
		if err := InitMetrics(meter); err != nil {
			return fmt.Errorf("init http metrics: %w", err)
		}
	}

	if err := initAuthMiddleware(); err != nil {
		return fmt.Errorf("init auth middleware: %w", err)
	}

	logger.Logger.Info("Middlewares initialized", zap.Bool("http_metrics", meter != nil))
	return nil
}
