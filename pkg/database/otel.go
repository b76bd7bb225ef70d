package database

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	startTimeKey = "otel:start_time"
	spanKey      = "otel:span"
)

var (
	dbQueriesTotal  metric.Int64Counter
	dbQueryDuration metric.Float64Histogram

	// 只屏蔽字面量形式的敏感字段，参数化查询本身不带值
	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(password\s*=\s*)'[^']*'`),
		regexp.MustCompile(`(?i)(token\s*=\s*)'[^']*'`),
		regexp.MustCompile(`(?i)(secret\s*=\s*)'[^']*'`),
	}
)

// InitDatabaseMetrics 初始化数据库指标，未调用时插件只产生 trace
func InitDatabaseMetrics(meter metric.Meter) error {
	var err error

	dbQueriesTotal, err = meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	dbQueryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	return err
}

// PluginConfig 插件配置
type PluginConfig struct {
	ServiceName  string
	DBName       string
	MaxSQLLength int
}

// OTELPlugin GORM OpenTelemetry 插件
type OTELPlugin struct {
	tracer trace.Tracer
	config PluginConfig
}

func NewOTELPlugin(cfg PluginConfig) *OTELPlugin {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "fieldforce"
	}
	if cfg.MaxSQLLength <= 0 {
		cfg.MaxSQLLength = 500
	}

	return &OTELPlugin{
		tracer: otel.Tracer(cfg.ServiceName + ".gorm"),
		config: cfg,
	}
}

func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

// Initialize 在每类操作前后注册回调，操作名在注册时确定
func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	registrations := []struct {
		register func(name string, before, after func(*gorm.DB)) error
		op       string
	}{
		{op: "select", register: func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("otel:after_"+name, after)
		}},
		{op: "insert", register: func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("otel:after_"+name, after)
		}},
		{op: "update", register: func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("otel:after_"+name, after)
		}},
		{op: "delete", register: func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("otel:after_"+name, after)
		}},
		{op: "row", register: func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Row().Before("gorm:row").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("otel:after_"+name, after)
		}},
		{op: "raw", register: func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("otel:after_"+name, after)
		}},
	}

	for _, r := range registrations {
		if err := r.register(r.op, p.before(r.op), p.after(r.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *OTELPlugin) before(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx, span := p.tracer.Start(db.Statement.Context, "db."+op,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemPostgreSQL,
				semconv.DBName(p.config.DBName),
				attribute.String("db.operation", op),
			),
		)

		db.InstanceSet(startTimeKey, time.Now())
		db.InstanceSet(spanKey, span)
		db.Statement.Context = ctx
	}
}

func (p *OTELPlugin) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(spanKey)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		// SQL 在执行之后才生成
		if table := db.Statement.Table; table != "" {
			span.SetAttributes(semconv.DBSQLTable(table))
		}
		span.SetAttributes(
			semconv.DBStatement(p.sanitizeSQL(db.Statement.SQL.String())),
			attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
		)

		status := "success"
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			span.SetStatus(codes.Ok, "record not found")
		default:
			status = "error"
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}

		var elapsed float64
		if started, ok := db.InstanceGet(startTimeKey); ok {
			if t, ok := started.(time.Time); ok {
				elapsed = time.Since(t).Seconds()
			}
		}
		recordQuery(db.Statement.Context, op, status, elapsed)
	}
}

func recordQuery(ctx context.Context, op, status string, elapsed float64) {
	if dbQueriesTotal == nil {
		return
	}

	labels := metric.WithAttributes(
		attribute.String("db.operation", op),
		attribute.String("db.status", status),
	)
	dbQueriesTotal.Add(ctx, 1, labels)
	dbQueryDuration.Record(ctx, elapsed, labels)
}

// sanitizeSQL 截断并屏蔽字面量中的敏感字段
func (p *OTELPlugin) sanitizeSQL(sql string) string {
	if len(sql) > p.config.MaxSQLLength {
		sql = sql[:p.config.MaxSQLLength] + "..."
	}
	for _, re := range sensitivePatterns {
		sql = re.ReplaceAllString(sql, "${1}'***'")
	}
	return sql
}

// WithOTELPlugin 为 GORM 添加 OpenTelemetry 插件
func WithOTELPlugin(db *gorm.DB, cfg PluginConfig) error {
	return db.Use(NewOTELPlugin(cfg))
}
