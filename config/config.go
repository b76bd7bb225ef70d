package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"fieldforce"`

	// 为空时回显任意 Origin，移动端不受影响，仅约束浏览器管理后台
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"fieldforce"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// 只读副本，逗号分隔 host:port，仅历史查询走副本；今日状态与打卡事务固定在主库
	PostgreSQLReplicaHosts []string `env:"POSTGRESQL_REPLICA_HOSTS" envSeparator:","`
	PostgreSQLAutoMigrate  bool     `env:"POSTGRESQL_AUTO_MIGRATE" envDefault:"true"`

	// Redis 配置
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"REDIS_PREFIX" envDefault:"ff"`
	RedisPoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"50"`
	RedisTimeout  time.Duration `env:"REDIS_TIMEOUT" envDefault:"3s"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`
	ServiceVersion  string  `env:"SERVICE_VERSION" envDefault:"dev"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled       bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitWindowSeconds int  `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	RateLimitMaxRequests   int  `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"20"`

	// 考勤配置
	// 员工未登记时区时使用的组织默认时区，用于切分自然日
	AttendanceTimezone      string        `env:"ATTENDANCE_TIMEZONE" envDefault:"Asia/Kolkata"`
	AttendanceTxTimeout     time.Duration `env:"ATTENDANCE_TX_TIMEOUT" envDefault:"5s"`
	AttendanceLockTTL       time.Duration `env:"ATTENDANCE_LOCK_TTL" envDefault:"10s"`
	AttendanceHistoryLimit  int           `env:"ATTENDANCE_HISTORY_MAX_LIMIT" envDefault:"100"`
	AttendanceEventsEnabled bool          `env:"ATTENDANCE_EVENTS_ENABLED" envDefault:"true"`
}

// Load 读取 .env 与环境变量并校验，进程入口处调用一次
func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	Cfg = cfg
	return nil
}

// MustLoad Load 失败直接退出
func MustLoad() {
	if err := Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if _, err := time.LoadLocation(c.AttendanceTimezone); err != nil {
		return fmt.Errorf("ATTENDANCE_TIMEZONE %q is not a valid IANA zone: %w", c.AttendanceTimezone, err)
	}

	if c.AttendanceTxTimeout <= 0 {
		return errors.New("ATTENDANCE_TX_TIMEOUT must be positive")
	}

	if c.AttendanceHistoryLimit <= 0 {
		return errors.New("ATTENDANCE_HISTORY_MAX_LIMIT must be positive")
	}

	if c.OTelEnabled && c.OTelEndpoint == "" {
		log.Printf("WARN: OTEL_ENABLED is set but OTEL_EXPORTER_OTLP_ENDPOINT is empty, telemetry will not be exported")
	}

	if len(c.JWTSecret) < 32 {
		log.Printf("WARN: JWT_SECRET is shorter than 32 bytes")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return c.dsnFor(c.PostgreSQLHost, c.PostgreSQLPort)
}

// GetReplicaDSNs 每个副本复用主库的账号与库名
func (c *Config) GetReplicaDSNs() []string {
	dsns := make([]string, 0, len(c.PostgreSQLReplicaHosts))
	for _, hostPort := range c.PostgreSQLReplicaHosts {
		hostPort = strings.TrimSpace(hostPort)
		if hostPort == "" {
			continue
		}
		host, port := hostPort, c.PostgreSQLPort
		if idx := strings.LastIndex(hostPort, ":"); idx > 0 {
			host, port = hostPort[:idx], hostPort[idx+1:]
		}
		dsns = append(dsns, c.dsnFor(host, port))
	}
	return dsns
}

func (c *Config) dsnFor(host, port string) string {
	return "host=" + host +
		" port=" + port +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
