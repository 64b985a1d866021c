// Package config loads process configuration from environment variables
// into a typed Config, validated once at startup before any component is
// constructed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	cjerrors "codejudge/pkg/errors"
)

// Config is the full set of environment-driven settings the bootstrap
// wires into the core and its adapters.
type Config struct {
	Port string

	MySQLDSN string

	RedisAddr     string
	RedisPassword string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	MinIOBucket    string

	JWTSecret      string
	CORSOrigins    []string

	SandboxRoot      string
	PoolSize         int
	TimeLimitSeconds int
	GracePeriodSeconds int

	LogLevel  string
	LogFormat string
}

// Load reads Config from the process environment, applying the same
// sensible defaults the reference codebase's per-service configs use, and
// validates the result before returning it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		MySQLDSN: getEnv("MYSQL_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "codejudge-submissions"),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "*")),

		SandboxRoot: getEnv("SANDBOX_ROOT", "/tmp/codejudge-sandbox"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	useSSL, err := getEnvBool("MINIO_USE_SSL", false)
	if err != nil {
		return nil, err
	}
	cfg.MinIOUseSSL = useSSL

	poolSize, err := getEnvInt("POOL_SIZE", 0)
	if err != nil {
		return nil, err
	}
	cfg.PoolSize = poolSize

	timeLimit, err := getEnvInt("TIME_LIMIT_SECONDS", 2)
	if err != nil {
		return nil, err
	}
	cfg.TimeLimitSeconds = timeLimit

	gracePeriod, err := getEnvInt("GRACE_PERIOD_SECONDS", 2)
	if err != nil {
		return nil, err
	}
	cfg.GracePeriodSeconds = gracePeriod

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return cjerrors.New(cjerrors.InternalServerError).WithMessage("JWT_SECRET must be set")
	}
	if c.TimeLimitSeconds <= 0 {
		return cjerrors.New(cjerrors.InternalServerError).WithMessage("TIME_LIMIT_SECONDS must be positive")
	}
	return nil
}

// UsesMySQL reports whether the production MySQL+Redis repository should be
// wired instead of the in-memory one.
func (c *Config) UsesMySQL() bool { return c.MySQLDSN != "" }

// UsesArchiver reports whether enough object-storage settings are present
// to construct the source archiver.
func (c *Config) UsesArchiver() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
