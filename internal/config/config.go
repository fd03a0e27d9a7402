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
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Staging    StagingConfig
	DataSource DataSourceConfig
	Security   SecurityConfig
	Alert      AlertConfig
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

// PostgresConfig holds primary store connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// StagingConfig locates the file-backed staging store.
type StagingConfig struct {
	FilePath        string
	CacheTTLSeconds int
	SeedDefaults    bool
}

// DataSourceConfig selects the facade strategy at composition time.
// Strategy is one of primary_first, primary_only, dual_write, config_toggle;
// UseStaging only applies to the config_toggle strategy.
type DataSourceConfig struct {
	Strategy   string
	UseStaging bool
}

// SecurityConfig carries rate-limit thresholds and limiter backing.
type SecurityConfig struct {
	MaxCreationPerUserPerHour int
	MaxCreationPerIPPerHour   int
	MaxSyncPerUserPerHour     int
	UseRedisLimiter           bool
}

// AlertConfig holds stub alert fan-out endpoints.
type AlertConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-sync-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnv("APP_ENV", "development") != "production",
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Staging: StagingConfig{
			FilePath:        getEnv("STAGING_FILE_PATH", "data/staging-users.json"),
			CacheTTLSeconds: getEnvAsInt("STAGING_CACHE_TTL_SECONDS", 300),
			SeedDefaults:    getEnvAsBool("STAGING_SEED_DEFAULTS", true),
		},
		DataSource: DataSourceConfig{
			Strategy:   getEnv("DATASOURCE_STRATEGY", "primary_first"),
			UseStaging: getEnvAsBool("DATASOURCE_USE_STAGING", false),
		},
		Security: SecurityConfig{
			MaxCreationPerUserPerHour: getEnvAsInt("SECURITY_MAX_CREATIONS_PER_USER_PER_HOUR", 3),
			MaxCreationPerIPPerHour:   getEnvAsInt("SECURITY_MAX_CREATIONS_PER_IP_PER_HOUR", 10),
			MaxSyncPerUserPerHour:     getEnvAsInt("SECURITY_MAX_SYNCS_PER_USER_PER_HOUR", 5),
			UseRedisLimiter:           getEnvAsBool("SECURITY_USE_REDIS_LIMITER", false),
		},
		Alert: AlertConfig{
			EmailFrom:  getEnv("ALERT_EMAIL_FROM", ""),
			WebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
		},
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

// CacheTTL returns the staging cache expiry duration.
func (s StagingConfig) CacheTTL() time.Duration {
	if s.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.CacheTTLSeconds) * time.Second
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
