package config

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
	TxIsolation     sql.IsolationLevel
}

type AuthConfig struct {
	AccessSecret string
}

type RedisConfig struct {
	URL             string
	MeasureCacheTTL time.Duration
}

type ContractsConfig struct {
	TxTimeout time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Redis       RedisConfig
	Contracts   ContractsConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 7090)
	v.SetDefault("DB_TX_ISOLATION", "read_committed")
	v.SetDefault("MEASURE_CACHE_TTL", "5m")
	v.SetDefault("CONTRACTS_TX_TIMEOUT", "10s")

	_ = v.ReadInConfig()

	isolation, err := parseIsolation(v.GetString("DB_TX_ISOLATION"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
			TxIsolation:     isolation,
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Redis: RedisConfig{
			URL:             v.GetString("REDIS_URL"),
			MeasureCacheTTL: v.GetDuration("MEASURE_CACHE_TTL"),
		},
		Contracts: ContractsConfig{
			TxTimeout: v.GetDuration("CONTRACTS_TX_TIMEOUT"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.HTTP.Port <= 0 {
		return fmt.Errorf("HTTP_PORT must be positive")
	}
	return nil
}

func parseIsolation(raw string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return 0, fmt.Errorf("unsupported DB_TX_ISOLATION %q", raw)
	}
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
