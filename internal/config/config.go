package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Realtime     RealtimeConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	// StatementTimeoutMillis is applied per connection; 0 keeps the server default.
	StatementTimeoutMillis int
	ApplicationName        string
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	OpTimeoutMillis int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token parameters. Tokens are issued elsewhere;
// the service only verifies them.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// RealtimeConfig sizes the event broker and the SSE streams.
type RealtimeConfig struct {
	Shards              int
	BufferSize          int
	HeartbeatSeconds    int
	WatermarkTTLMinutes int
}

// NotificationConfig controls the asynchronous outbox writer.
type NotificationConfig struct {
	Async                   bool
	Workers                 int
	QueueSize               int
	TimeoutSeconds          int
	SettingsCacheTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "guest-services"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,

			StatementTimeoutMillis: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 5000),
			ApplicationName:        getEnv("APP_NAME", "guest-services"),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			OpTimeoutMillis: getEnvAsInt("REDIS_OP_TIMEOUT_MS", 250),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Realtime: RealtimeConfig{
			Shards:              getEnvAsInt("REALTIME_SHARDS", 32),
			BufferSize:          getEnvAsInt("REALTIME_BUFFER_SIZE", 64),
			HeartbeatSeconds:    getEnvAsInt("REALTIME_HEARTBEAT_SECONDS", 25),
			WatermarkTTLMinutes: getEnvAsInt("REALTIME_WATERMARK_TTL_MINUTES", 15),
		},
		Notification: NotificationConfig{
			Async:                   getEnvAsBool("NOTIFY_ASYNC", true),
			Workers:                 getEnvAsInt("NOTIFY_WORKERS", 2),
			QueueSize:               getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			TimeoutSeconds:          getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
			SettingsCacheTTLSeconds: getEnvAsInt("NOTIFY_SETTINGS_CACHE_TTL_SECONDS", 60),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.App.Env == "production" {
			return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
		}
		cfg.Auth.JWTSecret = "dev-secret"
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// OpTimeout bounds a single Redis read or write.
func (r RedisConfig) OpTimeout() time.Duration {
	if r.OpTimeoutMillis <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(r.OpTimeoutMillis) * time.Millisecond
}

// Heartbeat returns the SSE keep-alive interval.
func (r RealtimeConfig) Heartbeat() time.Duration {
	if r.HeartbeatSeconds <= 0 {
		return 25 * time.Second
	}
	return time.Duration(r.HeartbeatSeconds) * time.Second
}

// WatermarkTTL returns how long per-record version watermarks are kept.
func (r RealtimeConfig) WatermarkTTL() time.Duration {
	return time.Duration(r.WatermarkTTLMinutes) * time.Minute
}

// Timeout bounds a single background notification fan-out.
func (n NotificationConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// SettingsCacheTTL returns the hotel settings cache lifetime.
func (n NotificationConfig) SettingsCacheTTL() time.Duration {
	return time.Duration(n.SettingsCacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
