// Package config loads booking-service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fracto-health/fracto/libs/auth"
	libconfig "github.com/fracto-health/fracto/libs/config"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServiceName string `mapstructure:"service_name"`
	Env         string `mapstructure:"env"`
	Port        string `mapstructure:"port"`
	GRPCPort    string `mapstructure:"grpc_port"`
	LogLevel    string `mapstructure:"log_level"`

	StorageDriver string `mapstructure:"storage_driver"`
	DatabaseURL   string `mapstructure:"database_url"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	DBMaxConns    int32  `mapstructure:"db_max_conns"`
	DBMinConns    int32  `mapstructure:"db_min_conns"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`

	RedisAddr                    string `mapstructure:"redis_addr"`
	RedisPassword                string `mapstructure:"redis_password"`
	RedisDB                      int    `mapstructure:"redis_db"`
	AvailabilityCacheTTLSeconds  int    `mapstructure:"availability_cache_ttl_seconds"`
	RateLimitPerMinute           int    `mapstructure:"rate_limit_per_minute"`
	RateLimitFailOpen            bool   `mapstructure:"rate_limit_fail_open"`
	RequestTimeoutSeconds        int    `mapstructure:"request_timeout_seconds"`
	RequestBodyLimitBytes        int64  `mapstructure:"request_body_limit_bytes"`
	CORSOrigins                  string `mapstructure:"cors_origins"`
	ShutdownGracePeriodSeconds   int    `mapstructure:"shutdown_grace_period_seconds"`
	ReadinessPollIntervalSeconds int    `mapstructure:"readiness_poll_interval_seconds"`

	AuthMode    string `mapstructure:"auth_mode"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	AuthJWKSURL string `mapstructure:"auth_jwks_url"`
	AuthIssuer  string `mapstructure:"auth_issuer"`

	KafkaBrokers        string `mapstructure:"kafka_brokers"`
	KafkaGroupID        string `mapstructure:"kafka_group_id"`
	KafkaDirectoryTopic string `mapstructure:"kafka_directory_topic"`

	OTelEnabled       bool    `mapstructure:"otel_enabled"`
	OTelEndpoint      string  `mapstructure:"otel_exporter_otlp_endpoint"`
	OTelSamplingRatio float64 `mapstructure:"otel_sampling_ratio"`
}

var defaults = map[string]any{
	"service_name": "booking-service",
	"env":          "development",
	"port":         "8080",
	"grpc_port":    "9090",
	"log_level":    "info",

	"storage_driver": DriverSQLite,
	"database_url":   "",
	"sqlite_path":    "booking.db",
	"db_max_conns":   10,
	"db_min_conns":   1,
	"auto_migrate":   true,

	"redis_addr":                      "",
	"redis_password":                  "",
	"redis_db":                        0,
	"availability_cache_ttl_seconds":  30,
	"rate_limit_per_minute":           120,
	"rate_limit_fail_open":            true,
	"request_timeout_seconds":         10,
	"request_body_limit_bytes":        1 << 20,
	"cors_origins":                    "",
	"shutdown_grace_period_seconds":   10,
	"readiness_poll_interval_seconds": 5,

	"auth_mode":     string(auth.ModeJWT),
	"jwt_secret":    "",
	"auth_jwks_url": "",
	"auth_issuer":   "",

	"kafka_brokers":         "",
	"kafka_group_id":        "booking-service",
	"kafka_directory_topic": "directory.doctor.upserted.v1",

	"otel_enabled":                false,
	"otel_exporter_otlp_endpoint": "localhost:4317",
	"otel_sampling_ratio":         1.0,
}

// Load reads .env (if present) and the environment.
func Load(dotenvFiles ...string) (Config, error) {
	return fromViper(libconfig.New(dotenvFiles...))
}

func fromViper(v *viper.Viper) (Config, error) {
	libconfig.Defaults(v, defaults)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	return cfg, nil
}

// Validate checks the settings the serve command depends on.
func (c Config) Validate() error {
	var errs []error
	if err := libconfig.ValidPort("PORT", c.Port); err != nil {
		errs = append(errs, err)
	}
	if c.GRPCPort != "" {
		if err := libconfig.ValidPort("GRPC_PORT", c.GRPCPort); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.StorageDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q (got %q)", DriverPostgres, DriverSQLite, c.StorageDriver))
	}
	mode, err := auth.ParseMode(c.AuthMode)
	if err != nil {
		errs = append(errs, fmt.Errorf("AUTH_MODE: %w", err))
	}
	if mode == auth.ModeJWT && c.JWTSecret == "" && c.AuthJWKSURL == "" {
		errs = append(errs, errors.New("JWT_SECRET or AUTH_JWKS_URL is required when AUTH_MODE=jwt"))
	}
	if c.OTelSamplingRatio < 0 || c.OTelSamplingRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0,1] (got %s)", strconv.FormatFloat(c.OTelSamplingRatio, 'g', -1, 64)))
	}
	return errors.Join(errs...)
}

func (c Config) HTTPAddr() string { return ":" + c.Port }

func (c Config) GRPCAddr() string { return ":" + c.GRPCPort }

func (c Config) Brokers() []string { return libconfig.List(c.KafkaBrokers) }

func (c Config) AllowedOrigins() []string { return libconfig.List(c.CORSOrigins) }

func (c Config) RequestTimeout() time.Duration { return seconds(c.RequestTimeoutSeconds, 10) }

func (c Config) ShutdownGracePeriod() time.Duration { return seconds(c.ShutdownGracePeriodSeconds, 10) }

func (c Config) ReadinessPollInterval() time.Duration {
	return seconds(c.ReadinessPollIntervalSeconds, 5)
}

func (c Config) AvailabilityCacheTTL() time.Duration {
	return seconds(c.AvailabilityCacheTTLSeconds, 30)
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
