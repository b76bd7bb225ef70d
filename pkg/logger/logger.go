package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"FieldForce/config"
)

var (
	// 未调用 Init 前为 Nop，测试与库代码可直接使用
	Logger   = zap.NewNop()
	logClose io.Closer
)

// Options 日志输出配置
type Options struct {
	Level   string
	Format  string // json | text
	Output  string // stdout 或文件路径
	Service string
	// 开发环境强制使用彩色 console 输出
	Development bool
}

func FromConfig(cfg config.Config) Options {
	return Options{
		Level:       cfg.LoggerLevel,
		Format:      cfg.LoggerFormat,
		Output:      cfg.LoggerOutputPath,
		Service:     cfg.ServiceName,
		Development: cfg.IsDevelopment(),
	}
}

// Init 使用全局配置初始化，失败直接退出
func Init() {
	if err := Setup(FromConfig(config.Cfg)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}

// Setup 构建 zap logger 并同时接管 hertz 的 hlog
func Setup(opts Options) error {
	ws, closer, err := buildWriteSyncer(opts.Output)
	if err != nil {
		return err
	}

	level := zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	hzLogger := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(buildEncoder(opts)),
		hertzzap.WithCoreWs(ws),
		hertzzap.WithCoreLevel(level),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
	)
	hlog.SetLogger(hzLogger)
	hlog.SetLevel(toHlogLevel(level.Level()))

	if logClose != nil {
		_ = logClose.Close()
	}
	logClose = closer

	Logger = hzLogger.Logger()
	if opts.Service != "" {
		Logger = Logger.With(zap.String("service", opts.Service))
	}
	Logger.Info("Logger initialized",
		zap.Stringer("level", level.Level()),
		zap.String("format", opts.Format),
		zap.String("output", opts.Output),
	)
	return nil
}

func Sync() {
	// stdout 在部分平台上 Sync 会返回 EINVAL，忽略即可
	_ = Logger.Sync()

	if logClose != nil {
		_ = logClose.Close()
		logClose = nil
	}
}

// Named 返回带组件名的子 logger，调用时读取，Init 之后也能拿到正式实例
func Named(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

// ParseLevel 大小写不敏感，无法识别时退回 info
func ParseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func buildEncoder(opts Options) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if opts.Development || strings.EqualFold(opts.Format, "text") {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func buildWriteSyncer(output string) (zapcore.WriteSyncer, io.Closer, error) {
	if output == "" || strings.EqualFold(output, "stdout") {
		return zapcore.AddSync(os.Stdout), nil, nil
	}
	if strings.EqualFold(output, "stderr") {
		return zapcore.AddSync(os.Stderr), nil, nil
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", output, err)
	}
	return zapcore.AddSync(file), file, nil
}

func toHlogLevel(level zapcore.Level) hlog.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return hlog.LevelDebug
	case level == zapcore.InfoLevel:
		return hlog.LevelInfo
	case level == zapcore.WarnLevel:
		return hlog.LevelWarn
	case level == zapcore.ErrorLevel:
		return hlog.LevelError
	default:
		return hlog.LevelFatal
	}
}
